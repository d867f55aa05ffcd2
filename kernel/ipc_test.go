package kernel

import (
	"runtime"
	"sync"
	"testing"
)

func TestMailboxTryRecvEmpty(t *testing.T) {
	var mb Mailbox
	var l Line

	if ok := mb.TryRecv(&l); ok {
		t.Fatalf("TryRecv() ok = true, want false")
	}
}

func TestMailboxTrySendFull(t *testing.T) {
	var mb Mailbox
	var l Line

	for lap := 0; lap < 3; lap++ {
		for i := 0; i < mailboxSlots; i++ {
			l.Set(uint32(lap), i, []uint16{uint16(i)})
			if ok := mb.TrySend(&l); !ok {
				t.Fatalf("TrySend() ok = false at slot %d, want true", i)
			}
		}
		if ok := mb.TrySend(&l); ok {
			t.Fatalf("TrySend() ok = true when full, want false")
		}
		if mb.Len() != mailboxSlots {
			t.Fatalf("Len() = %d, want %d", mb.Len(), mailboxSlots)
		}

		var got Line
		for i := 0; i < mailboxSlots; i++ {
			if ok := mb.TryRecv(&got); !ok {
				t.Fatalf("TryRecv() ok = false at slot %d, want true", i)
			}
			if got.Field != uint32(lap) || got.Row != uint16(i) || got.Samples()[0] != uint16(i) {
				t.Fatalf("TryRecv() = field %d row %d, want %d %d", got.Field, got.Row, lap, i)
			}
		}
	}
}

func TestLineSetTruncates(t *testing.T) {
	var l Line
	l.Set(1, 2, make([]uint16, MaxLineSamples+10))
	if l.Len != MaxLineSamples {
		t.Fatalf("Len = %d, want %d", l.Len, MaxLineSamples)
	}
}

func TestMailboxConcurrentProducers(t *testing.T) {
	oldProcs := runtime.GOMAXPROCS(1)
	defer runtime.GOMAXPROCS(oldProcs)

	const (
		producers = 4
		perProd   = 2_000
		total     = producers * perProd
	)

	var mb Mailbox

	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(producers)
	for producerID := 0; producerID < producers; producerID++ {
		go func(producerID int) {
			defer wg.Done()
			<-start
			var l Line
			for i := 0; i < perProd; i++ {
				id := producerID*perProd + i
				l.Set(uint32(id), 0, []uint16{uint16(id), uint16(id >> 16)})
				mb.Send(&l)
			}
		}(producerID)
	}
	close(start)

	seen := make([]bool, total)
	var l Line
	for i := 0; i < total; i++ {
		mb.Recv(&l)
		if l.Len != 2 {
			t.Fatalf("Recv() Len = %d, want 2", l.Len)
		}
		id := int(l.Data[0]) | int(l.Data[1])<<16
		if id != int(l.Field) {
			t.Fatalf("Recv() payload %d does not match field %d", id, l.Field)
		}
		if id >= total {
			t.Fatalf("Recv() id = %d, want < %d", id, total)
		}
		if seen[id] {
			t.Fatalf("Recv() duplicate id %d", id)
		}
		seen[id] = true
	}

	wg.Wait()
}
