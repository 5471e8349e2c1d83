package diaglog

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/function61/gokit/assert"
)

func TestTail(t *testing.T) {
	tail := NewTail(3)
	tail.now = func() time.Time { return time.Date(2020, 1, 2, 13, 14, 15, 0, time.UTC) }

	messages := func() string {
		msgs := []string{}
		for _, entry := range tail.Entries() {
			msgs = append(msgs, entry.Message)
		}
		return fmt.Sprintf("%v", msgs)
	}

	assert.EqualString(t, messages(), "[]")

	tail.Add("one")
	tail.Addf("two %d", 2)

	assert.EqualString(t, messages(), "[one two 2]")

	tail.Add("three")
	tail.Add("four")
	tail.Add("five")

	assert.EqualString(t, messages(), "[three four five]")

	assert.EqualString(t, tail.Entries()[0].String(), "13:14:15 three")
}

func TestLineSplitterTee(t *testing.T) {
	sink := &bytes.Buffer{}
	lines := []string{}

	w, splitter := NewLineSplitterTee(sink, func(line string) {
		lines = append(lines, line)
	})

	_, _ = w.Write([]byte("cannot open 'tank': dataset does not exist\r\nsecond "))

	assert.EqualString(t, fmt.Sprintf("%q", lines), `["cannot open 'tank': dataset does not exist"]`)

	_, _ = w.Write([]byte("line\nunterminated"))

	assert.EqualString(t, fmt.Sprintf("%q", lines), `["cannot open 'tank': dataset does not exist" "second line"]`)

	splitter.Flush()
	splitter.Flush() // no-op

	assert.EqualString(t, fmt.Sprintf("%q", lines), `["cannot open 'tank': dataset does not exist" "second line" "unterminated"]`)

	assert.EqualString(t, sink.String(), "cannot open 'tank': dataset does not exist\r\nsecond line\nunterminated")
}
