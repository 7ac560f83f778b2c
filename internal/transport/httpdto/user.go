package httpdto

import "convo-chat/internal/domain/user"

// CheckUserRequest is used for POST /check-user
type CheckUserRequest struct {
	Email string `json:"email"`
}

// AddUserRequest is used for POST /add-user
type AddUserRequest struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	About          string `json:"about,omitempty"`
}

// AddUserWithIDRequest is used for POST /add-user-with-id
type AddUserWithIDRequest struct {
	ID             FlexInt `json:"id"`
	Email          string  `json:"email"`
	Name           string  `json:"name"`
	ProfilePicture string  `json:"profilePicture,omitempty"`
	About          string  `json:"about,omitempty"`
}

type ContactRequest struct {
	Email          string `json:"email,omitempty"`
	Name           string `json:"name"`
	PhoneNumber    string `json:"phoneNumber,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	About          string `json:"about,omitempty"`
}

// BatchUsersRequest is used for POST /add-batch-users
type BatchUsersRequest struct {
	StartingID *FlexInt         `json:"startingId,omitempty"`
	Contacts   []ContactRequest `json:"contacts"`
}

// Start returns the first id to assign, defaulting to 1.
func (r BatchUsersRequest) Start() int {
	if r.StartingID == nil {
		return 1
	}
	return r.StartingID.Int()
}

// OnboardRequest is used for POST /onboard-user
type OnboardRequest struct {
	Email string  `json:"email"`
	Name  string  `json:"name"`
	About *string `json:"about,omitempty"`
	Image string  `json:"image"`
}

type UserResponse struct {
	User user.User `json:"user"`
}

type BatchCreatedResponse struct {
	Message string `json:"message"`
}

type BatchDeletedResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}

// ContactsResponse is returned by GET /get-contacts
type ContactsResponse struct {
	Users map[string][]user.User `json:"users"`
}
