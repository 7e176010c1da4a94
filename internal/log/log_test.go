package log

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(func() { InitWriter(&bytes.Buffer{}) })
	return &buf
}

func TestLog_Format(t *testing.T) {
	buf := capture(t)

	Info(CatSave, "Saved", "pane", "p1", "revision", 2)
	WarnErr(CatSave, "Save failed", errors.New("disk full"), "path", "a.md")
	Debug(CatMode, "Odd fields", "orphan")

	lines := GetRecentLogs(10)
	require.Len(t, lines, 3)
	require.Regexp(t, `^\d{4}-\d\d-\d\dT\d\d:\d\d:\d\d \[INFO\] \[save\] Saved pane=p1 revision=2$`, lines[0])
	require.Contains(t, lines[1], "[WARN] [save] Save failed path=a.md error=disk full")
	require.Contains(t, lines[2], "orphan=<missing>")
	require.Equal(t, lines[0]+"\n"+lines[1]+"\n"+lines[2]+"\n", buf.String())
}

func TestLog_MinLevelAndDisable(t *testing.T) {
	capture(t)

	SetMinLevel(LevelWarn)
	Info(CatUI, "dropped")
	Error(CatUI, "kept")
	require.Len(t, GetRecentLogs(10), 1)

	SetEnabled(false)
	Error(CatUI, "dropped too")
	require.Len(t, GetRecentLogs(10), 1)
}

func TestLog_RingBufferKeepsNewest(t *testing.T) {
	capture(t)

	for i := range BufferSize() + 5 {
		Info(CatView, fmt.Sprintf("entry %d", i))
	}

	all := GetRecentLogs(BufferSize() * 2)
	require.Len(t, all, BufferSize())
	require.Contains(t, all[0], "entry 5")
	require.Contains(t, all[len(all)-1], fmt.Sprintf("entry %d", BufferSize()+4))

	last := GetRecentLogs(2)
	require.Len(t, last, 2)
	require.Equal(t, all[len(all)-2:], last)

	require.Nil(t, GetRecentLogs(0))
	require.Nil(t, GetRecentLogs(-3))

	ClearBuffer()
	require.Empty(t, GetRecentLogs(10))
}

func TestLog_Listener(t *testing.T) {
	capture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	listener := NewListener(ctx)
	require.NotNil(t, listener)

	Info(CatJournal, "Journal ready")

	ev, ok := listener.Listen()().(LogEvent)
	require.True(t, ok)
	require.Equal(t, EntryEvent, ev.Type)
	require.Contains(t, ev.Payload, "[journal] Journal ready")
}

func TestLevel_String(t *testing.T) {
	require.Equal(t, "DEBUG", LevelDebug.String())
	require.Equal(t, "ERROR", LevelError.String())
	require.Equal(t, "UNKNOWN", Level(42).String())
}
