package session

import (
	"github.com/kvakvs/jkdefrag-go/observer"
	"github.com/kvakvs/jkdefrag-go/units"
	"github.com/kvakvs/jkdefrag-go/voldriver"
)

// Driver returns the session's throttled volume driver (§5 suspension points + slow_down are
// applied transparently here; the mover and gap engine never need to know either exists).
func (s *DefragState) Driver() voldriver.Driver { return s.driver }

// Observer returns the session's dispatcher, which runs every callback on its own goroutine
// (§5: "the observer/GUI runs on a separate thread").
func (s *DefragState) Observer() observer.Observer { return s.dispatcher }

func (s *DefragState) BytesPerCluster() units.Bytes64 { return s.bytesPerCluster }

// RegisterDirMoveFailure increments the shared FAT directory-move-failure latch and returns its
// new value (§4.3/§9).
func (s *DefragState) RegisterDirMoveFailure() int { return s.counters.registerDirMoveFailure() }

func (s *DefragState) AllDirsUnmovable() bool { return s.allDirsUnmovable.Load() }

func (s *DefragState) LatchAllDirsUnmovable() { s.allDirsUnmovable.Store(true) }
