package jail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindingString_SourceOnly(t *testing.T) {
	b := &Binding{Source: "/usr/lib"}
	assert.Equal(t, "/usr/lib", b.String())
}

func TestBindingString_DistinctTarget(t *testing.T) {
	b := &Binding{Source: "/host/data", Target: "/data"}
	assert.Equal(t, "/host/data,/data", b.String())
}

func TestBindingString_ReadWrite(t *testing.T) {
	b := &Binding{Source: "/tmp/out", Writable: ReadWrite}
	assert.Equal(t, "/tmp/out,/tmp/out,1", b.String())
}

func TestBindingString_CommaForcesLongForm(t *testing.T) {
	b := &Binding{Source: "/weird,path"}
	assert.Equal(t, "/weird,path,/weird,path,0", b.String())
}

func TestParseBinding_SourceOnly(t *testing.T) {
	b, err := ParseBinding("/usr/lib")
	require.NoError(t, err)
	assert.Equal(t, "/usr/lib", b.Source)
	assert.Equal(t, "/usr/lib", b.Target)
	assert.Equal(t, ReadOnly, b.Writable)
}

func TestParseBinding_SourceAndTarget(t *testing.T) {
	b, err := ParseBinding("/host/data,/data")
	require.NoError(t, err)
	assert.Equal(t, "/host/data", b.Source)
	assert.Equal(t, "/data", b.Target)
}

func TestParseBinding_Writable(t *testing.T) {
	b, err := ParseBinding("/tmp/out,/tmp/out,1")
	require.NoError(t, err)
	assert.Equal(t, ReadWrite, b.Writable)
}

func TestParseBinding_BadWritableFlag(t *testing.T) {
	_, err := ParseBinding("/a,/b,2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "writable")
}

func TestParseBinding_NonNumericFlag(t *testing.T) {
	_, err := ParseBinding("/a,/b,rw")
	require.Error(t, err)
}

func TestParseBinding_EmptySource(t *testing.T) {
	_, err := ParseBinding("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty source")
}

func TestParseBinding_RoundTrip(t *testing.T) {
	for _, s := range []string{"/usr/lib", "/host/data,/data", "/tmp/out,/out,1"} {
		b, err := ParseBinding(s)
		require.NoError(t, err)
		assert.Equal(t, s, b.String())
	}
}
