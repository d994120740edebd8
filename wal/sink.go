package wal

import "os"

// FileSink adapts an *os.File to the Sink interface, appending bytes and
// syncing on Flush. NewWriterAt's existingLength parameter is meant to be
// fed from a FileSink's Size at open time, so WAL appends realign to the
// block grid after a process restart.
type FileSink struct {
	f *os.File
}

// NewFileSink wraps f. The caller is responsible for positioning f (e.g.
// via O_APPEND or an explicit Seek) so that writes land at its end.
func NewFileSink(f *os.File) *FileSink {
	return &FileSink{f: f}
}

// Size returns f's current length, for seeding NewWriterAt.
func (s *FileSink) Size() (int64, error) {
	info, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Append writes p to the file.
func (s *FileSink) Append(p []byte) error {
	_, err := s.f.Write(p)
	return err
}

// Flush syncs the file to stable storage.
func (s *FileSink) Flush() error {
	return s.f.Sync()
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	return s.f.Close()
}
