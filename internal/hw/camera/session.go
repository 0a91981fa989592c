package camera

import (
	"context"
	"time"

	"github.com/cjeanneret/camctl/internal/debug"
	"github.com/cjeanneret/camctl/internal/hw/gphoto"
	"github.com/google/uuid"
)

const releaseTimeout = 5 * time.Second

// SessionInfo describes a live session.
type SessionInfo struct {
	ID    uuid.UUID
	Model string // empty for auto-detected sessions
	Port  string
	Since time.Time
}

// Session is the handle set of one connected device. It is owned by the
// Camera and lent to one operation at a time.
type Session struct {
	SessionInfo

	device gphoto.Device
	file   *gphoto.File
	shots  int
}

func newSession(dev gphoto.Device, model, port string) *Session {
	return &Session{
		SessionInfo: SessionInfo{
			ID:    uuid.New(),
			Model: model,
			Port:  port,
			Since: time.Now(),
		},
		device: dev,
		file:   gphoto.NewFile(),
	}
}

// release drops the file buffer and closes the device handle. It runs on
// its own context since the device context may already be cancelled.
func (s *Session) release() error {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	s.file.Free()
	err := s.device.Exit(ctx)
	if err != nil {
		debug.Verbose("session %s: exit: %v", s.ID, err)
	}
	if ferr := s.device.Free(); ferr != nil && err == nil {
		err = ferr
	}
	debug.Verbose("session %s released after %d shot(s)", s.ID, s.shots)
	return err
}
