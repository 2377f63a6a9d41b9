package handlers

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCloser struct {
	bytes.Buffer
	err error
}

func (f *failingCloser) Close() error { return f.err }

func TestCopyAndCloseReportsCloseError(t *testing.T) {
	dst := &failingCloser{err: errors.New("disk full")}

	n, err := copyAndClose(dst, strings.NewReader("abc"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.EqualValues(t, 3, n)
}

func TestCopyAndClose(t *testing.T) {
	dst := &failingCloser{}

	n, err := copyAndClose(dst, strings.NewReader("abc"))

	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, "abc", dst.String())
}
