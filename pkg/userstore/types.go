package userstore

// User is the external representation of a stored user. ID is always the
// string form of the backend's native primary key. An unset favoriteNumber
// serializes as an explicit null.
type User struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	FavoriteNumber *int   `json:"favoriteNumber"`
}

// CreateUser is the payload for creating a user. The id is never supplied
// by the caller; each backend generates its own.
type CreateUser struct {
	Name           string `json:"name" binding:"required,min=1"`
	Email          string `json:"email" binding:"required,email"`
	FavoriteNumber *int   `json:"favoriteNumber,omitempty" binding:"omitempty,min=0,max=100"`
}

// UpdateUser is a partial patch. Nil fields are left untouched.
type UpdateUser struct {
	Name           *string `json:"name,omitempty" binding:"omitempty,min=1"`
	Email          *string `json:"email,omitempty" binding:"omitempty,email"`
	FavoriteNumber *int    `json:"favoriteNumber,omitempty" binding:"omitempty,min=0,max=100"`
}

// Empty reports whether the patch carries no fields.
func (u *UpdateUser) Empty() bool {
	return u.Name == nil && u.Email == nil && u.FavoriteNumber == nil
}

// BuildUser assembles a User from a generated id and a create payload,
// letting drivers echo the stored state without a second round trip.
func BuildUser(id string, data *CreateUser) *User {
	user := &User{ID: id, Name: data.Name, Email: data.Email}
	if data.FavoriteNumber != nil {
		user.FavoriteNumber = data.FavoriteNumber
	}
	return user
}
