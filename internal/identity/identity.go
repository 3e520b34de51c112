package identity

// Identity is the authenticated caller's resolved attributes for the
// current request. It lives for one request and is never persisted.
//
// RoleNames are as claimed by the token; RoleIDs are looked up against the
// role store at request time and are the only values authorization
// decisions trust. SuperAdmin is derived from role membership, not stored.
type Identity struct {
	SubjectID  string
	OrgID      string
	Username   string
	Email      string
	RoleNames  []string
	RoleIDs    []string
	SuperAdmin bool
}

// Anonymous reports whether this identity carries no authenticated subject.
// The optional middleware variant attaches an anonymous identity on public
// routes when no token is presented.
func (i *Identity) Anonymous() bool {
	return i == nil || i.SubjectID == ""
}
