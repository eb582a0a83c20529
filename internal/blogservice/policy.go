package blogservice

// IsOwner is the single ownership rule for post mutations.
func IsOwner(p *Post, userID int) bool {
	return p != nil && userID > 0 && p.Author.ID == userID
}
