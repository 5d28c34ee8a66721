package lobby

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRoom struct {
	code string
}

func (f *fakeRoom) Code() string        { return f.code }
func (f *fakeRoom) PhaseName() string   { return "waiting" }
func (f *fakeRoom) Version() uint64     { return 0 }
func (f *fakeRoom) ActionLog() []string { return nil }

func TestRegister_DuplicateCodeRejected(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(GamePoker, "ABC123", &fakeRoom{code: "ABC123"}))
	err := r.Register(GamePoker, "ABC123", &fakeRoom{code: "ABC123"})
	require.Error(t, err)
}

func TestRegister_SameCodeAcrossGameTypesIndependent(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(GamePoker, "ABC123", &fakeRoom{code: "ABC123"}))
	require.NoError(t, r.Register(GameUno, "ABC123", &fakeRoom{code: "ABC123"}))
}

func TestNewPrivateCode_UniqueAcrossBothRegistries(t *testing.T) {
	r := NewRegistry()
	code, err := r.NewPrivateCode()
	require.NoError(t, err)
	require.Len(t, code, codeLength)

	require.NoError(t, r.Register(GamePoker, code, &fakeRoom{code: code}))

	other, err := r.NewPrivateCode()
	require.NoError(t, err)
	require.NotEqual(t, code, other)
}

func TestPublicCodes_NeverUnregistered(t *testing.T) {
	r := NewRegistry()
	code := PublicCodes[GamePoker][0]
	require.NoError(t, r.Register(GamePoker, code, &fakeRoom{code: code}))

	r.Unregister(GamePoker, code)
	_, ok := r.Get(GamePoker, code)
	require.True(t, ok, "public codes must never be removed from the registry")
}

func TestUnregister_PrivateCodeRemoved(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(GamePoker, "ZZZ999", &fakeRoom{code: "ZZZ999"}))
	r.Unregister(GamePoker, "ZZZ999")
	_, ok := r.Get(GamePoker, "ZZZ999")
	require.False(t, ok)
}
