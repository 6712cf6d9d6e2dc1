// Package audio resolves the container format of audio inputs from their
// content, converts between formats with an external codec and reads basic
// stream metadata.
//
// Detection never trusts file extensions: it reads the first bytes of the
// content and matches them against known signatures. Conversions and byte
// inputs are written to scoped temporary files whose Release removes them:
//
//	norm, err := resolver.ConvertIfNeeded(ctx, audio.Handle{Path: p, Format: audio.FormatOGG}, audio.FormatWAV)
//	if err != nil {
//	    return err
//	}
//	defer norm.Release()
package audio
