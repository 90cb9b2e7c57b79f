// ABOUTME: Audible start cue played at the stream anchor
// ABOUTME: Lets the operator line up an externally recorded video with the data stream
package cue

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

const (
	toneSampleRate = 44100
	channels       = 2
	bytesPerFrame  = channels * 2
	fadeDuration   = 5 * time.Millisecond
)

// Config describes the cue sound
type Config struct {
	File        string // .mp3 or .flac file; empty plays a tone
	FrequencyHz float64
	Duration    time.Duration
	Volume      int // 0-100
}

// Cue holds a decoded sound ready to play instantly
type Cue struct {
	otoCtx *oto.Context
	pcm    []byte
	rate   int

	mu      sync.Mutex
	players []*oto.Player
}

// New decodes or synthesises the cue and opens the audio device
func New(cfg Config) (*Cue, error) {
	pcm, rate, err := load(cfg)
	if err != nil {
		return nil, err
	}
	pcm = applyVolume(pcm, cfg.Volume)

	op := &oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	otoCtx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	log.Printf("Start cue ready: %.0fms at %dHz", pcmDuration(pcm, rate).Seconds()*1000, rate)

	return &Cue{
		otoCtx: otoCtx,
		pcm:    pcm,
		rate:   rate,
	}, nil
}

// Play starts the cue and returns immediately
func (c *Cue) Play() {
	player := c.otoCtx.NewPlayer(bytes.NewReader(c.pcm))
	player.Play()

	c.mu.Lock()
	c.players = append(c.players, player)
	c.mu.Unlock()
}

// Duration returns the cue length
func (c *Cue) Duration() time.Duration {
	return pcmDuration(c.pcm, c.rate)
}

// Close stops playback and suspends the device
func (c *Cue) Close() {
	c.mu.Lock()
	for _, p := range c.players {
		p.Close()
	}
	c.players = nil
	c.mu.Unlock()

	if err := c.otoCtx.Suspend(); err != nil {
		log.Printf("Failed to suspend audio: %v", err)
	}
}

func load(cfg Config) ([]byte, int, error) {
	if cfg.File == "" {
		if cfg.FrequencyHz <= 0 || cfg.Duration <= 0 {
			return nil, 0, fmt.Errorf("tone needs a positive frequency and duration")
		}
		return Tone(toneSampleRate, cfg.FrequencyHz, cfg.Duration), toneSampleRate, nil
	}

	f, err := os.Open(cfg.File)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open cue file: %w", err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(cfg.File)); ext {
	case ".mp3":
		return decodeMP3(f)
	case ".flac":
		return decodeFLAC(f)
	default:
		return nil, 0, fmt.Errorf("unsupported cue format: %s (supported: .mp3, .flac)", ext)
	}
}

// decodeMP3 reads a whole MP3 stream as interleaved stereo int16 PCM
func decodeMP3(r io.Reader) ([]byte, int, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, fmt.Errorf("mp3 decode error: %w", err)
	}
	if len(pcm) == 0 {
		return nil, 0, fmt.Errorf("mp3 contains no audio")
	}
	return pcm, decoder.SampleRate(), nil
}

// decodeFLAC reads a whole FLAC stream as interleaved stereo int16 PCM.
// Mono is duplicated and extra channels are dropped.
func decodeFLAC(r io.Reader) ([]byte, int, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode flac: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	srcChannels := int(info.NChannels)
	shift := int(info.BitsPerSample) - 16

	var pcm []byte
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("flac decode error: %w", err)
		}

		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				src := ch
				if src >= srcChannels {
					src = srcChannels - 1
				}
				v := frame.Subframes[src].Samples[i]
				if shift > 0 {
					v >>= shift
				} else if shift < 0 {
					v <<= -shift
				}
				pcm = binary.LittleEndian.AppendUint16(pcm, uint16(int16(v)))
			}
		}
	}

	if len(pcm) == 0 {
		return nil, 0, fmt.Errorf("flac contains no audio")
	}
	return pcm, int(info.SampleRate), nil
}

// Tone synthesises a stereo sine burst with short linear fades
func Tone(sampleRate int, freq float64, d time.Duration) []byte {
	frames := int(d.Seconds() * float64(sampleRate))
	fade := int(fadeDuration.Seconds() * float64(sampleRate))
	if fade*2 > frames {
		fade = frames / 2
	}

	buf := make([]byte, frames*bytesPerFrame)
	for i := 0; i < frames; i++ {
		amp := 0.8
		switch {
		case i < fade:
			amp *= float64(i) / float64(fade)
		case i >= frames-fade:
			amp *= float64(frames-1-i) / float64(fade)
		}

		v := int16(amp * math.MaxInt16 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
		binary.LittleEndian.PutUint16(buf[i*bytesPerFrame:], uint16(v))
		binary.LittleEndian.PutUint16(buf[i*bytesPerFrame+2:], uint16(v))
	}
	return buf
}

// applyVolume scales int16 LE samples in place. Zero means full volume.
func applyVolume(pcm []byte, volume int) []byte {
	if volume <= 0 || volume >= 100 {
		return pcm
	}

	multiplier := float64(volume) / 100.0
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(binary.LittleEndian.Uint16(pcm[i:]))
		binary.LittleEndian.PutUint16(pcm[i:], uint16(int16(float64(s)*multiplier)))
	}
	return pcm
}

func pcmDuration(pcm []byte, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	frames := len(pcm) / bytesPerFrame
	return time.Duration(frames) * time.Second / time.Duration(rate)
}
