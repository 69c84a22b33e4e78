package grpcwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestElemIsNotTerminal(t *testing.T) {
	e := Elem(42)
	assert.Equal(t, ElemKindValue, e.Kind())
	assert.False(t, e.IsTerminal())

	v, ok := e.Value()
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	_, hasTrailers := e.Trailers()
	assert.False(t, hasTrailers)
}

func TestFinalElemIsTerminalAndCarriesTrailers(t *testing.T) {
	trailers := Trailers{Status: Status{Code: CodeOK}}
	e := FinalElem("done", trailers)

	assert.Equal(t, ElemKindFinal, e.Kind())
	assert.True(t, e.IsTerminal())

	v, ok := e.Value()
	assert.True(t, ok)
	assert.Equal(t, "done", v)

	got, hasTrailers := e.Trailers()
	assert.True(t, hasTrailers)
	assert.Equal(t, trailers, got)
}

func TestNoMoreElemsCarriesNoValue(t *testing.T) {
	trailers := Trailers{Status: Status{Code: CodeCanceled, Message: "aborted"}}
	e := NoMoreElems[int](trailers)

	assert.Equal(t, ElemKindNoMore, e.Kind())
	assert.True(t, e.IsTerminal())

	v, ok := e.Value()
	assert.False(t, ok)
	assert.Equal(t, 0, v)

	got, hasTrailers := e.Trailers()
	assert.True(t, hasTrailers)
	assert.Equal(t, trailers, got)
}
