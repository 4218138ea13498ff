//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"golang.org/x/sys/unix"
)

const midiPollMS = 250

// readMIDIDevice reads a raw MIDI device (e.g. /dev/snd/midiC1D0) until ctx
// is canceled, passing every framed message to onMessage.
func readMIDIDevice(ctx context.Context, path string, onMessage func(midi.Message)) error {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("open MIDI device %s: %w", path, err)
	}
	defer unix.Close(fd)

	var parser midiParser
	buf := make([]byte, 256)
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := unix.Poll(fds, midiPollMS)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("poll MIDI device: %w", err)
		}
		if n == 0 {
			continue
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return fmt.Errorf("MIDI device error/hangup: %s", path)
		}

		r, err := unix.Read(fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("read MIDI device: %w", err)
		}
		if r == 0 {
			return fmt.Errorf("MIDI device closed: %s", path)
		}

		for _, b := range buf[:r] {
			if msg, ok := parser.Feed(b); ok {
				onMessage(msg)
			}
		}
	}
}
