package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoginThenCurrent(t *testing.T) {
	s := NewStore()

	_, ok := s.Current()
	require.False(t, ok, "fresh store should have no identity")
	require.False(t, s.Authenticated())

	id := Identity{
		ID:       "u-1",
		FullName: "Ada Lovelace",
		Username: "ada",
		Email:    "ada@example.com",
	}
	s.Login(id)

	got, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, id, got, "Current must return exactly the identity passed to Login")
	assert.True(t, s.Authenticated())

	s.Logout()
	_, ok = s.Current()
	assert.False(t, ok, "Logout must make Current return absent")
	assert.False(t, s.Authenticated())
}

func TestStore_LogoutIdempotent(t *testing.T) {
	s := NewStore()
	s.Login(Identity{ID: "u-1"})

	s.Logout()
	s.Logout()

	_, ok := s.Current()
	assert.False(t, ok)
	assert.False(t, s.Authenticated())
}

func TestStore_LoginReplacesIdentityWholesale(t *testing.T) {
	s := NewStore()
	s.Login(Identity{ID: "u-1", FullName: "Ada Lovelace", Email: "ada@example.com"})
	s.Login(Identity{ID: "u-1", FullName: "Ada King"})

	got, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "Ada King", got.FullName)
	assert.Empty(t, got.Email, "refresh must replace the record wholesale, not merge")
}

func TestStore_AuthenticatedWhileIdentityLoading(t *testing.T) {
	s := NewStore()
	s.resume()

	assert.True(t, s.Authenticated())
	_, ok := s.Current()
	assert.False(t, ok, "restored session is authenticated while the identity is still loading")
}

func TestStore_ConcurrentReaders(t *testing.T) {
	s := NewStore()
	s.Login(Identity{ID: "u-1"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%10 == 0 {
				s.Login(Identity{ID: "u-1"})
			}
			s.Current()
			s.Authenticated()
		}()
	}
	wg.Wait()
}
