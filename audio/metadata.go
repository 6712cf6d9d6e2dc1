package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-audio/wav"

	"github.com/kbukum/voxkit/errors"
)

// Metadata describes an audio stream.
type Metadata struct {
	Format     Format        `json:"format"`
	Duration   time.Duration `json:"-"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	BitDepth   int           `json:"bit_depth,omitempty"`
	// BitRate is in bits per second.
	BitRate int64 `json:"bitrate,omitempty"`
	// Size is the file size in bytes.
	Size int64 `json:"size"`
}

// MarshalJSON renders Duration in seconds.
func (m Metadata) MarshalJSON() ([]byte, error) {
	type plain Metadata
	return json.Marshal(struct {
		plain
		Duration float64 `json:"duration"`
	}{plain: plain(m), Duration: m.Duration.Seconds()})
}

// Metadata reads stream properties of the file at path. WAV headers are
// decoded in process; other formats are probed with ffprobe.
func (r *Resolver) Metadata(ctx context.Context, path string) (*Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.NotFound("audio file", path).WithCause(err)
	}
	format, ok, err := r.DetectFormat(path)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("read audio header: %w", err))
	}
	if !ok {
		return nil, errors.UnsupportedFormat(path, "", "")
	}

	var md *Metadata
	if format == FormatWAV {
		md, err = wavMetadata(path)
	} else {
		md, err = r.probeMetadata(ctx, path)
	}
	if err != nil {
		return nil, err
	}
	md.Format = format
	md.Size = info.Size()
	return md, nil
}

func wavMetadata(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NotFound("audio file", path).WithCause(err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errors.UnsupportedFormat(path, "", string(FormatWAV)).
			WithDetail("reason", "invalid wav header")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, errors.Internal(fmt.Errorf("locate wav data chunk: %w", err))
	}
	bitRate := int64(dec.SampleRate) * int64(dec.NumChans) * int64(dec.BitDepth)
	md := &Metadata{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		BitRate:    bitRate,
	}
	if bitRate > 0 {
		md.Duration = time.Duration(int64(dec.PCMSize) * 8 * int64(time.Second) / bitRate)
	}
	return md, nil
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType     string `json:"codec_type"`
		SampleRate    string `json:"sample_rate"`
		Channels      int    `json:"channels"`
		BitsPerSample int    `json:"bits_per_sample"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
}

func (r *Resolver) probeMetadata(ctx context.Context, path string) (*Metadata, error) {
	res, err := r.probe.Run(ctx, "-v", "error", "-print_format", "json", "-show_format", "-show_streams", path)
	if err != nil {
		return nil, errors.ExternalServiceError("ffprobe", err)
	}
	return parseProbe(res.Stdout)
}

func parseProbe(out []byte) (*Metadata, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, errors.Internal(fmt.Errorf("decode ffprobe output: %w", err))
	}

	md := &Metadata{}
	for _, s := range probe.Streams {
		if s.CodecType != "audio" {
			continue
		}
		md.SampleRate, _ = strconv.Atoi(s.SampleRate)
		md.Channels = s.Channels
		md.BitDepth = s.BitsPerSample
		break
	}
	if secs, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		md.Duration = time.Duration(secs * float64(time.Second))
	}
	md.BitRate, _ = strconv.ParseInt(probe.Format.BitRate, 10, 64)
	return md, nil
}
