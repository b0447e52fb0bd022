package shm

// Role is the capability of a region handle.
type Role uint8

const (
	_role_beg Role = iota
	RoleOwner
	RoleReader
	RolePeer
	_role_end
)

func (r Role) IsAvailable() bool {
	return r > _role_beg && r < _role_end
}

// CanWrite reports whether mutators are allowed for the role.
func (r Role) CanWrite() bool {
	return r == RoleOwner || r == RolePeer
}

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleReader:
		return "reader"
	case RolePeer:
		return "peer"
	default:
		return "unknown"
	}
}
