package access

import (
	"encoding/json"
	"fmt"

	"github.com/BurntSushi/toml"
)

// ParseUsersJSON reads a JSON object of identity to secret, as in
// USERS_JSON={"admin":"...","analyst":"..."}. Roles follow RoleForIdentity.
func ParseUsersJSON(s string) ([]User, error) {
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("parse USERS_JSON: %w", err)
	}

	users := make([]User, 0, len(m))
	for id, secret := range m {
		users = append(users, User{Identity: id, Secret: secret, Role: RoleForIdentity(id)})
	}
	return users, nil
}

// usersFile is the TOML layout of USERS_FILE:
//
//	[users.alice]
//	secret = "$2a$10$..."
//	role = "analyst"
type usersFile struct {
	Users map[string]fileUser `toml:"users"`
}

type fileUser struct {
	Secret string `toml:"secret"`
	Role   string `toml:"role"`
}

// LoadUsersFile reads a TOML users file. An entry without a role gets the
// role implied by its identity.
func LoadUsersFile(path string) ([]User, error) {
	var f usersFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("read users file %s: %w", path, err)
	}
	return f.toUsers()
}

// ParseUsersTOML is LoadUsersFile for in-memory content.
func ParseUsersTOML(data string) ([]User, error) {
	var f usersFile
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, fmt.Errorf("parse users file: %w", err)
	}
	return f.toUsers()
}

func (f usersFile) toUsers() ([]User, error) {
	users := make([]User, 0, len(f.Users))
	for id, fu := range f.Users {
		if fu.Secret == "" {
			return nil, fmt.Errorf("user %q: secret is required", id)
		}
		role := RoleForIdentity(id)
		if fu.Role != "" {
			r, err := ParseRole(fu.Role)
			if err != nil {
				return nil, fmt.Errorf("user %q: %w", id, err)
			}
			role = r
		}
		users = append(users, User{Identity: id, Secret: fu.Secret, Role: role})
	}
	return users, nil
}
