package payload

import (
	"fmt"
	"sync"
	"testing"
)

func TestStoreStartsEmpty(t *testing.T) {
	s := NewStore()

	rec, gen := s.Snapshot()
	if gen != 0 {
		t.Errorf("expected generation 0, got %d", gen)
	}
	if rec.Timestamp != 0 {
		t.Errorf("expected timestamp 0, got %v", rec.Timestamp)
	}
	if len(rec.Images) != 0 {
		t.Errorf("expected no images, got %d", len(rec.Images))
	}
}

func TestStoreReplaceBumpsGeneration(t *testing.T) {
	s := NewStore()

	s.Replace(Record{Timestamp: 1.5})
	rec, gen := s.Snapshot()
	if gen != 1 {
		t.Errorf("expected generation 1, got %d", gen)
	}
	if rec.Timestamp != 1.5 {
		t.Errorf("expected timestamp 1.5, got %v", rec.Timestamp)
	}

	s.Replace(Record{Timestamp: 2.5})
	rec, gen = s.Snapshot()
	if gen != 2 {
		t.Errorf("expected generation 2, got %d", gen)
	}
	if rec.Timestamp != 2.5 {
		t.Errorf("expected timestamp 2.5, got %v", rec.Timestamp)
	}
}

func TestStoreNewerThan(t *testing.T) {
	s := NewStore()

	if s.NewerThan(0) {
		t.Error("empty store should not be newer than 0")
	}

	s.Replace(Record{Timestamp: 1})
	if !s.NewerThan(0) {
		t.Error("store should be newer than 0 after a replace")
	}
	if s.NewerThan(1) {
		t.Error("store should not be newer than its own generation")
	}

	_, gen := s.Snapshot()
	s.Replace(Record{Timestamp: 2})
	if !s.NewerThan(gen) {
		t.Error("store should be newer than the pre-replace generation")
	}
}

// TestStoreSnapshotNeverTorn replaces distinguishable full records from many
// writers while readers verify every observed snapshot matches exactly one
// submitted record.
func TestStoreSnapshotNeverTorn(t *testing.T) {
	s := NewStore()

	const writers = 8
	const replacesPerWriter = 200

	var writerWG, readerWG sync.WaitGroup
	stop := make(chan struct{})

	// Readers: every snapshot must be internally consistent.
	for i := 0; i < 4; i++ {
		readerWG.Add(1)
		go func() {
			defer readerWG.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				rec, _ := s.Snapshot()
				if rec.Timestamp == 0 {
					continue // initial empty record
				}
				wantPrompt := fmt.Sprintf("prompt-%v", rec.Timestamp)
				wantImage := fmt.Sprintf("img-%v", rec.Timestamp)
				if rec.Prompt != wantPrompt {
					t.Errorf("torn record: timestamp %v with prompt %q", rec.Timestamp, rec.Prompt)
					return
				}
				if got := rec.Image(FieldImage); got != wantImage {
					t.Errorf("torn record: timestamp %v with image %q", rec.Timestamp, got)
					return
				}
			}
		}()
	}

	for w := 0; w < writers; w++ {
		writerWG.Add(1)
		go func(w int) {
			defer writerWG.Done()
			for i := 0; i < replacesPerWriter; i++ {
				ts := float64(w*replacesPerWriter + i + 1)
				s.Replace(Record{
					Timestamp: ts,
					Prompt:    fmt.Sprintf("prompt-%v", ts),
					Images:    map[string]string{FieldImage: fmt.Sprintf("img-%v", ts)},
				})
			}
		}(w)
	}

	writerWG.Wait()
	close(stop)
	readerWG.Wait()

	if gen := s.Generation(); gen != writers*replacesPerWriter {
		t.Errorf("expected generation %d, got %d", writers*replacesPerWriter, gen)
	}
}
