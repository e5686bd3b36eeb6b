package revocation

import (
	"sync"
	"testing"
	"time"
)

func TestList_ReplaceAndContains(t *testing.T) {
	l := New()
	if l.ContainsAnyURL() {
		t.Fatal("expected empty list to report no URLs")
	}

	serial := []byte{0x01, 0x02, 0x03}
	l.ReplaceFromURL("https://crl.example.com/a.crl", [][]byte{serial}, time.Now())

	if !l.ContainsAnyURL() {
		t.Fatal("expected list to report a URL after replace")
	}
	if !l.ContainsSerial(serial) {
		t.Fatal("expected serial to be revoked")
	}
	if l.ContainsSerial([]byte{0xFF}) {
		t.Fatal("expected unknown serial to not be revoked")
	}
}

func TestList_ReplaceIsAtomicPerURL(t *testing.T) {
	l := New()
	urlA := "https://crl.example.com/a.crl"
	urlB := "https://crl.example.com/b.crl"

	serialA := []byte{0xAA}
	serialB := []byte{0xBB}
	l.ReplaceFromURL(urlA, [][]byte{serialA}, time.Now())
	l.ReplaceFromURL(urlB, [][]byte{serialB}, time.Now())

	if !l.ContainsSerial(serialA) || !l.ContainsSerial(serialB) {
		t.Fatal("expected both serials to be revoked")
	}

	// Replacing A's contribution must not disturb B's.
	l.ReplaceFromURL(urlA, nil, time.Now())
	if l.ContainsSerial(serialA) {
		t.Fatal("expected serialA to be cleared after replace")
	}
	if !l.ContainsSerial(serialB) {
		t.Fatal("expected serialB to survive A's replace")
	}
}

func TestList_ConcurrentAccess(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			l.ReplaceFromURL("https://crl.example.com/x.crl", [][]byte{{byte(i)}}, time.Now())
		}(i)
		go func() {
			defer wg.Done()
			l.ContainsSerial([]byte{0x01})
		}()
	}
	wg.Wait()
}
