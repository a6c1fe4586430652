package core

type (
	// User is an authenticated identity coming out of the OAuth/OIDC flow.
	User struct {
		Subject   string `json:"subject"`
		Login     string `json:"login"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatarUrl"`
		Name      string `json:"name"`
	}

	// Profile is the locally persisted identity of the device's user. It is
	// round-tripped as JSON through the preference store and replaced
	// wholesale on update.
	Profile struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Bio    string `json:"bio"`
		Avatar string `json:"profilePicture"`
	}
)

// DefaultProfile is returned when no profile has been persisted yet.
func DefaultProfile() Profile {
	return Profile{
		ID:     "1",
		Name:   "Meme Enthusiast",
		Bio:    "I love creating and sharing memes!",
		Avatar: "https://images.unsplash.com/photo-1511367461989-f85a21fda167?ixlib=rb-1.2.1&auto=format&fit=crop&w=200&q=80",
	}
}
