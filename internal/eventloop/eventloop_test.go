package eventloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestFileEventFiresOnPipeWrite(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	fds := make([]int, 2)
	require.NoError(t, unix.Pipe(fds))
	r, w := fds[0], fds[1]
	defer unix.Close(r)
	defer unix.Close(w)

	fired := make(chan struct{}, 1)
	require.NoError(t, l.AddFileEvent(r, R, func(fd int) {
		var buf [16]byte
		unix.Read(fd, buf[:])
		fired <- struct{}{}
		l.Stop()
	}))

	go func() {
		time.Sleep(20 * time.Millisecond)
		unix.Write(w, []byte("x"))
	}()

	done := make(chan error, 1)
	go func() { done <- l.Run() }()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("file event never fired")
	}
	<-done
}

func TestTimeEventFiresAndReschedules(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	count := 0
	l.AddTimeEvent(5, func() int64 {
		count++
		if count >= 3 {
			l.Stop()
			return NoMore
		}
		return 5
	})

	done := make(chan error, 1)
	go func() { done <- l.Run() }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("time events never completed")
	}
	require.Equal(t, 3, count)
}
