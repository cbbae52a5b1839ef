package domain

import (
	"fmt"
	"strings"
	"time"
)

// Settings holds the directory connection settings edited by the administrator.
type Settings struct {
	Host         string    `json:"host"`
	Port         string    `json:"port"`
	AdminString  string    `json:"admin_string"`
	UseSSL       bool      `json:"use_ssl"`
	UserSuffix   string    `json:"user_suffix"`
	GroupSuffix  string    `json:"group_suffix"`
	HostSuffix   string    `json:"host_suffix"`
	PasswordHash []byte    `json:"password_hash,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DefaultSettings returns the settings used before anything has been saved.
func DefaultSettings() Settings {
	return Settings{
		Host:        "localhost",
		Port:        "389",
		AdminString: "cn=Manager,dc=my-domain,dc=com",
		UseSSL:      false,
		UserSuffix:  "ou=People,dc=my-domain,dc=com",
		GroupSuffix: "ou=group,dc=my-domain,dc=com",
		HostSuffix:  "ou=machines,dc=my-domain,dc=com",
	}
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	if s.PasswordHash != nil {
		s.PasswordHash = append([]byte(nil), s.PasswordHash...)
	}
	return s
}

// Admins splits AdminString into its individual identities.
func (s Settings) Admins() []string {
	var out []string
	for _, a := range strings.Split(s.AdminString, ";") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Summary renders the settings as a plain-text block, one setting per line.
// The password hash is never included.
func (s Settings) Summary() string {
	ssl := "False"
	if s.UseSSL {
		ssl = "True"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Host: %s\n", s.Host)
	fmt.Fprintf(&b, "Port: %s\n", s.Port)
	fmt.Fprintf(&b, "Admins: %s\n", s.AdminString)
	fmt.Fprintf(&b, "SSL: %s\n", ssl)
	fmt.Fprintf(&b, "UserSuffix: %s\n", s.UserSuffix)
	fmt.Fprintf(&b, "GroupSuffix: %s\n", s.GroupSuffix)
	fmt.Fprintf(&b, "HostSuffix: %s\n", s.HostSuffix)
	return b.String()
}
