package models

// Profile is the account record returned by the login endpoint.
type Profile struct {
	ID             int    `json:"id"`
	FullName       string `json:"full_name"`
	AuthorityLevel string `json:"authority_level"`
	ContactNumber  string `json:"contact_number"`
	Address        string `json:"address"`
	Status         string `json:"status"`
}
