package models

import "time"

// Role values carried in tokens and stored on users.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
	RoleAdmin = "admin"
)

// User matches the document in the users collection.
type User struct {
	ID          string    `bson:"_id" json:"id"`
	Email       string    `bson:"email" json:"email"`
	Name        string    `bson:"name" json:"name"`
	Password    string    `bson:"password" json:"-"`
	Role        string    `bson:"role" json:"role"`
	CommunityID string    `bson:"communityID,omitempty" json:"communityID,omitempty"`
	Status      string    `bson:"status" json:"status"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}
