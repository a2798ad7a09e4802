package main

import "time"

// User is a registered account. Username starts empty and is assigned by
// ensureUsername; once set it is unique (the partial index leaves
// unassigned rows out, so any number of them can coexist). Avatar holds
// the bare filename of the uploaded image under the avatar upload
// directory.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Username     string `gorm:"uniqueIndex:idx_users_username,where:username <> ''"`
	Bio          string
	Avatar       string
	CreatedAt    time.Time

	Tweets   []Tweet   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Comments []Comment `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Likes    []Like    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Tweet is a short post. Immutable after creation: there are no edit or
// delete routes, rows only disappear when their author is deleted.
type Tweet struct {
	ID        uint   `gorm:"primaryKey"`
	Body      string `gorm:"size:280;not null"`
	CreatedAt time.Time
	UserID    uint `gorm:"not null;index"`

	User     User      `gorm:"foreignKey:UserID"`
	Comments []Comment `gorm:"foreignKey:TweetID;constraint:OnDelete:CASCADE"`
	Likes    []Like    `gorm:"foreignKey:TweetID;constraint:OnDelete:CASCADE"`
}

// Comment is a reply on a tweet.
type Comment struct {
	ID        uint   `gorm:"primaryKey"`
	Body      string `gorm:"size:280;not null"`
	CreatedAt time.Time
	UserID    uint `gorm:"not null"`
	TweetID   uint `gorm:"not null;index"`

	User  User  `gorm:"foreignKey:UserID"`
	Tweet Tweet `gorm:"foreignKey:TweetID"`
}

// Like marks that a user liked a tweet. The (UserID, TweetID) pair is
// unique, which is what makes the like toggle well defined.
type Like struct {
	ID      uint `gorm:"primaryKey"`
	UserID  uint `gorm:"not null;uniqueIndex:idx_user_tweet"`
	TweetID uint `gorm:"not null;uniqueIndex:idx_user_tweet"`

	User  User  `gorm:"foreignKey:UserID"`
	Tweet Tweet `gorm:"foreignKey:TweetID"`
}
