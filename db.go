package main

import (
	"errors"
	"strconv"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&User{}, &Tweet{}, &Comment{}, &Like{}); err != nil {
		return nil, err
	}
	return db, nil
}

// isUniqueViolation reports whether err comes from a UNIQUE constraint.
// TranslateError covers most cases; the message check catches the ones the
// sqlite driver leaves untranslated.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func getUserByID(db *gorm.DB, id uint) *User {
	var u User
	if err := db.First(&u, id).Error; err != nil {
		return nil
	}
	return &u
}

func getUserByEmail(db *gorm.DB, email string) *User {
	var u User
	if err := db.Where("email = ?", email).First(&u).Error; err != nil {
		return nil
	}
	return &u
}

func getUserByUsername(db *gorm.DB, username string) *User {
	var u User
	if err := db.Where("username = ?", username).First(&u).Error; err != nil {
		return nil
	}
	return &u
}

func getTweet(db *gorm.DB, id uint) (*Tweet, error) {
	var t Tweet
	if err := db.First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// deriveUsername picks a free username from the local part of an email
// address, truncated to 20 characters. On collision a numeric suffix is
// appended and incremented until no user holds the candidate: "a", "a2",
// "a3", ... The caller is expected to insert soon after; a racing insert of
// the same candidate is rejected by the unique index.
func deriveUsername(db *gorm.DB, email string) string {
	base := email
	if at := strings.Index(base, "@"); at >= 0 {
		base = base[:at]
	}
	if r := []rune(base); len(r) > 20 {
		base = string(r[:20])
	}
	cand, i := base, 1
	for getUserByUsername(db, cand) != nil {
		i++
		cand = base + strconv.Itoa(i)
	}
	return cand
}

// ensureUsername assigns a derived username to users that do not have one
// yet. Idempotent; called at registration and lazily from the profile
// pages so incomplete records self-heal.
func ensureUsername(db *gorm.DB, u *User) error {
	if u.Username != "" {
		return nil
	}
	u.Username = deriveUsername(db, u.Email)
	return db.Model(u).Update("username", u.Username).Error
}

// toggleLike flips the presence of the (user, tweet) like pair.
func toggleLike(db *gorm.DB, userID, tweetID uint) error {
	var like Like
	err := db.Where("user_id = ? AND tweet_id = ?", userID, tweetID).First(&like).Error
	switch {
	case err == nil:
		return db.Delete(&like).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return db.Create(&Like{UserID: userID, TweetID: tweetID}).Error
	default:
		return err
	}
}

// listTimeline returns every tweet with author, comments and likes loaded,
// newest first. Unbounded.
func listTimeline(db *gorm.DB) ([]Tweet, error) {
	var tweets []Tweet
	err := db.
		Preload("User").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("comments.created_at ASC") }).
		Preload("Comments.User").
		Preload("Likes").
		Order("tweets.created_at DESC").
		Find(&tweets).Error
	return tweets, err
}

// listUserTweets returns one user's tweets, newest first.
func listUserTweets(db *gorm.DB, userID uint) ([]Tweet, error) {
	var tweets []Tweet
	err := db.
		Preload("User").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("comments.created_at ASC") }).
		Preload("Comments.User").
		Preload("Likes").
		Where("user_id = ?", userID).
		Order("tweets.created_at DESC").
		Find(&tweets).Error
	return tweets, err
}

// deleteUser removes a user and everything they own in one transaction:
// likes and comments on their tweets, then their own likes, comments and
// tweets, then the row itself. No orphans survive.
func deleteUser(db *gorm.DB, userID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var tweetIDs []uint
		if err := tx.Model(&Tweet{}).Where("user_id = ?", userID).Pluck("id", &tweetIDs).Error; err != nil {
			return err
		}
		if len(tweetIDs) > 0 {
			if err := tx.Where("tweet_id IN ?", tweetIDs).Delete(&Like{}).Error; err != nil {
				return err
			}
			if err := tx.Where("tweet_id IN ?", tweetIDs).Delete(&Comment{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", userID).Delete(&Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&Tweet{}).Error; err != nil {
			return err
		}
		return tx.Delete(&User{}, userID).Error
	})
}
