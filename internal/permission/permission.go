// Package permission implements the 4-bit access masks granted per resource
// category and the rules for combining them across role grants.
package permission

import (
	"fmt"
	"net/http"
	"strings"
)

// Command is a REST operation kind guarded by one bit of a Mask.
type Command string

const (
	CommandGet  Command = "get"
	CommandPost Command = "post"
	CommandPut  Command = "put"
	CommandDel  Command = "del"
)

// Mask holds the rights for one category. Bit order is get (LSB), post, put, del (MSB).
type Mask uint8

const (
	MaskGet Mask = 1 << iota
	MaskPost
	MaskPut
	MaskDel

	MaskNone Mask = 0
	MaskAll       = MaskGet | MaskPost | MaskPut | MaskDel
)

const errMaskOutOfRangeFmt = "permission %d for %s out of range [0,%d]"

// New builds a mask from individual rights.
func New(get, post, put, del bool) Mask {
	var m Mask
	if get {
		m |= MaskGet
	}
	if post {
		m |= MaskPost
	}
	if put {
		m |= MaskPut
	}
	if del {
		m |= MaskDel
	}
	return m
}

// MaskOf returns the bit guarding cmd.
func MaskOf(cmd Command) (Mask, bool) {
	switch cmd {
	case CommandGet:
		return MaskGet, true
	case CommandPost:
		return MaskPost, true
	case CommandPut:
		return MaskPut, true
	case CommandDel:
		return MaskDel, true
	}
	return MaskNone, false
}

// Has reports whether the bit for cmd is set. Unknown commands are never granted.
func (m Mask) Has(cmd Command) bool {
	bit, ok := MaskOf(cmd)
	return ok && m&bit != 0
}

func (m Mask) Valid() bool {
	return m <= MaskAll
}

// CommandForMethod maps an HTTP method onto the command that guards it.
// PATCH is treated as a post.
func CommandForMethod(method string) (Command, bool) {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead:
		return CommandGet, true
	case http.MethodPost, http.MethodPatch:
		return CommandPost, true
	case http.MethodPut:
		return CommandPut, true
	case http.MethodDelete:
		return CommandDel, true
	}
	return "", false
}

// Category is a resource family with its own mask.
type Category string

const (
	CategoryJobs         Category = "jobs"
	CategoryDevices      Category = "devices"
	CategoryTokens       Category = "tokens"
	CategoryAccessTokens Category = "accesstokens"
)

// Categories lists every category known to the service.
var Categories = []Category{
	CategoryJobs,
	CategoryDevices,
	CategoryTokens,
	CategoryAccessTokens,
}

// Set is the per-category permission state of a caller. It serializes as
// {"jobs": 3, "tokens": 15, ...}, which is also the shape embedded in session tokens.
type Set map[Category]Mask

// Allows fails closed: a missing category or an unknown command is denied.
func (s Set) Allows(category Category, cmd Command) bool {
	if s == nil {
		return false
	}
	return s[category].Has(cmd)
}

func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (s Set) Validate() error {
	for category, m := range s {
		if !m.Valid() {
			return fmt.Errorf(errMaskOutOfRangeFmt, m, category, MaskAll)
		}
	}
	return nil
}
