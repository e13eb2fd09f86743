package usecase

import (
	"errors"
	"fmt"
	"io"

	"univox/internal/domain"
)

// pumpAudio copies captured PCM chunks from the microphone session into
// the peer session until capture ends or the session stops. Send failures
// after a stop request are expected and not reported.
func (c *SessionController) pumpAudio(active *activeSession) {
	defer close(active.pumpDone)

	buf := make([]byte, c.cfg.ChunkSize)
	for {
		n, err := active.audio.Read(buf)
		if n > 0 {
			if sendErr := active.peer.SendAudio(buf[:n]); sendErr != nil {
				if !active.stopRequested() {
					c.events.SessionError(domain.ErrorCodeAudioStream, fmt.Sprintf("failed to stream audio: %v", sendErr))
				}
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !active.stopRequested() {
				c.events.SessionError(domain.ErrorCodeAudioStream, fmt.Sprintf("audio capture error: %v", err))
			}
			return
		}
	}
}
