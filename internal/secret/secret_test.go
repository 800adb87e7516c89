// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package secret

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealUnseal_RoundTrip(t *testing.T) {
	box, err := Open(Options{KeyPath: filepath.Join(t.TempDir(), "secret.key")})
	require.NoError(t, err)

	sealed, err := box.Seal("AIzaSy-test-key")
	require.NoError(t, err)
	assert.True(t, IsSealed(sealed))
	assert.NotContains(t, sealed, "AIzaSy")

	plain, err := box.Unseal(sealed)
	require.NoError(t, err)
	assert.Equal(t, "AIzaSy-test-key", plain)
}

func TestSeal_UsesFreshNonces(t *testing.T) {
	box, err := Open(Options{KeyPath: filepath.Join(t.TempDir(), "secret.key")})
	require.NoError(t, err)

	a, _ := box.Seal("same")
	b, _ := box.Seal("same")
	assert.NotEqual(t, a, b)
}

func TestSeal_EmptyStaysEmpty(t *testing.T) {
	box, err := Open(Options{KeyPath: filepath.Join(t.TempDir(), "secret.key")})
	require.NoError(t, err)

	sealed, err := box.Seal("")
	require.NoError(t, err)
	assert.Equal(t, "", sealed)
}

func TestUnseal_PlaintextPassesThrough(t *testing.T) {
	box, err := Open(Options{KeyPath: filepath.Join(t.TempDir(), "secret.key")})
	require.NoError(t, err)

	plain, err := box.Unseal("legacy-plain-key")
	require.NoError(t, err)
	assert.Equal(t, "legacy-plain-key", plain)
}

func TestKeyFile_ReusedAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.key")
	first, err := Open(Options{KeyPath: path})
	require.NoError(t, err)
	sealed, err := first.Seal("persist me")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	second, err := Open(Options{KeyPath: path})
	require.NoError(t, err)
	plain, err := second.Unseal(sealed)
	require.NoError(t, err)
	assert.Equal(t, "persist me", plain)
}

func TestUnseal_WrongKeyFails(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(Options{KeyPath: filepath.Join(dir, "a.key")})
	require.NoError(t, err)
	b, err := Open(Options{KeyPath: filepath.Join(dir, "b.key")})
	require.NoError(t, err)

	sealed, err := a.Seal("secret")
	require.NoError(t, err)
	_, err = b.Unseal(sealed)
	assert.ErrorIs(t, err, ErrOpenFailed)

	_, err = b.Unseal(Prefix + "!!!not-base64")
	assert.ErrorIs(t, err, ErrInvalidSealed)
}

func TestPassphrase_DerivesStableKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.key")
	opts := Options{KeyPath: path, Passphrase: "correct horse", Iterations: 1000}

	first, err := Open(opts)
	require.NoError(t, err)
	sealed, err := first.Seal("value")
	require.NoError(t, err)

	second, err := Open(opts)
	require.NoError(t, err)
	plain, err := second.Unseal(sealed)
	require.NoError(t, err)
	assert.Equal(t, "value", plain)

	wrong, err := Open(Options{KeyPath: path, Passphrase: "wrong", Iterations: 1000})
	require.NoError(t, err)
	_, err = wrong.Unseal(sealed)
	assert.ErrorIs(t, err, ErrOpenFailed)

	_, err = os.Stat(path + ".salt")
	assert.NoError(t, err)
}

func TestNew_RejectsShortKey(t *testing.T) {
	_, err := New([]byte("short"))
	assert.Error(t, err)
}
