package alert

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
	"time"
)

const (
	ToneFrequency  = 800.0
	ToneDuration   = 500 * time.Millisecond
	toneSampleRate = 22050
	toneStartGain  = 0.3
	toneEndGain    = 0.01
)

// Tone pipes a short sine beep, rendered as WAV, into an audio player
// command that reads from stdin (for example "aplay -q -").
type Tone struct {
	player string
	args   []string
	wav    []byte
	run    func(ctx context.Context, name string, args []string, stdin []byte) error
}

func NewTone(player string, args ...string) *Tone {
	if len(args) == 0 {
		args = []string{"-q", "-"}
	}
	return &Tone{
		player: player,
		args:   args,
		wav:    RenderTone(ToneFrequency, ToneDuration, toneSampleRate),
		run:    runPlayer,
	}
}

func (t *Tone) Alert(ctx context.Context) error {
	if err := t.run(ctx, t.player, t.args, t.wav); err != nil {
		return fmt.Errorf("play tone with %s: %w", t.player, err)
	}
	return nil
}

func runPlayer(ctx context.Context, name string, args []string, stdin []byte) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	return cmd.Run()
}

// RenderTone returns a mono 16-bit PCM WAV of a sine wave whose gain decays
// exponentially from 0.3 to 0.01 over the duration.
func RenderTone(freq float64, d time.Duration, sampleRate int) []byte {
	n := int(float64(sampleRate) * d.Seconds())
	decay := math.Log(toneEndGain / toneStartGain)

	pcm := make([]int16, n)
	for i := range pcm {
		pos := float64(i) / float64(n)
		gain := toneStartGain * math.Exp(decay*pos)
		v := gain * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		pcm[i] = int16(v * math.MaxInt16)
	}

	dataLen := uint32(n * 2)
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataLen)
	_ = binary.Write(&buf, binary.LittleEndian, pcm)
	return buf.Bytes()
}
