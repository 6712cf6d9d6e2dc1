// Package transcription defines the capability interface every
// speech-to-text backend implements, the request and result types, the
// registry that builds and caches model instances, and the policy deciding
// when a failed model may be replaced by a fallback.
//
// Backends register a factory against a kind tag:
//
//	reg := transcription.NewRegistry()
//	mock.Register(reg)
//	whisper.Register(reg)
//
//	h, err := reg.ResolveWithFallback(ctx, primary, &fallback)
//	if err != nil {
//	    return err
//	}
//	res, err := h.Model.Transcribe(ctx, transcription.Input{Path: path})
//
// # Backends
//
//   - transcription/whisper: faster-whisper HTTP sidecar
//   - transcription/mock: deterministic test backend with failure injection
package transcription
