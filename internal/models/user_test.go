package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole(t *testing.T) {
	for _, r := range Roles {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, Role("root").Valid())
	assert.False(t, Role("").Valid())
	assert.False(t, Role("Admin").Valid())

	assert.False(t, RoleCustomer.IsStaff())
	assert.True(t, RoleEmployee.IsStaff())
	assert.True(t, RoleAdmin.IsStaff())
}

func TestAccountJSONOmitsHash(t *testing.T) {
	b, err := json.Marshal(Account{ID: "1", Name: "Ann Lee", PasswordHash: "salt$hash", Role: RoleCustomer})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "salt$hash")
	assert.NotContains(t, string(b), "password")
}
