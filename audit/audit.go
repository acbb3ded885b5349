// Package audit records console activity: sign-ins, sign-outs, and content
// mutations. IP addresses are stored only as salted hashes; the salt is
// generated once per installation and persisted alongside the entries.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Kinds of auditable events.
const (
	KindLoginSuccess = "login_success"
	KindLoginFailure = "login_failure"
	KindLogout       = "logout"
	KindPostSave     = "post_save"
	KindPostDelete   = "post_delete"
	KindImageUpload  = "image_upload"
	KindImageDelete  = "image_delete"
)

// Entry is a single audit record.
type Entry struct {
	ID        int64
	Kind      string
	Actor     string // email of the acting user, or the attempted email on login failure
	Detail    string // event-specific context, e.g. post title or filename
	IPHash    string
	CreatedAt time.Time
}

// HashIP hashes an IP address with the store's persistent salt. Stable
// within an installation, unlinkable across installations.
func (s *Store) HashIP(ip string) string {
	sum := sha256.Sum256([]byte(s.salt + ip))
	return hex.EncodeToString(sum[:])
}
