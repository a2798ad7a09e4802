package main

import (
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := openDB(filepath.Join(t.TempDir(), "chirp-test.db"))
	require.NoError(t, err)
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string) *User {
	t.Helper()
	u := &User{Email: email, PasswordHash: hashPassword("secret1")}
	u.Username = deriveUsername(db, email)
	require.NoError(t, db.Create(u).Error)
	return u
}

func createTweet(t *testing.T, db *gorm.DB, u *User, body string) *Tweet {
	t.Helper()
	tw := &Tweet{Body: body, UserID: u.ID}
	require.NoError(t, db.Create(tw).Error)
	return tw
}

func TestDeriveUsername(t *testing.T) {
	db := newTestDB(t)

	assert.Equal(t, "a", createUser(t, db, "a@x.com").Username)
	assert.Equal(t, "a2", createUser(t, db, "a@y.com").Username)
	assert.Equal(t, "a3", createUser(t, db, "a@z.com").Username)
}

func TestDeriveUsernameTruncation(t *testing.T) {
	db := newTestDB(t)

	u := createUser(t, db, "abcdefghijklmnopqrstuvwxyz@example.com")
	assert.Equal(t, "abcdefghijklmnopqrst", u.Username)
	assert.Len(t, u.Username, 20)

	// Same long local part still collides against the truncated base
	u2 := createUser(t, db, "abcdefghijklmnopqrstuvwxyz@other.com")
	assert.Equal(t, "abcdefghijklmnopqrst2", u2.Username)
}

func TestDeriveUsernameMultibyteTruncation(t *testing.T) {
	db := newTestDB(t)

	// 25 two-byte runes; the cut must land on a rune boundary
	u := createUser(t, db, strings.Repeat("ü", 25)+"@example.com")
	assert.True(t, utf8.ValidString(u.Username))
	assert.Equal(t, strings.Repeat("ü", 20), u.Username)
	assert.Equal(t, 20, utf8.RuneCountInString(u.Username))
}

func TestUnassignedUsernamesCoexist(t *testing.T) {
	db := newTestDB(t)

	// Two rows without a username must both insert; the unique index
	// only covers assigned names
	u1 := &User{Email: "a@x.com", PasswordHash: hashPassword("secret1")}
	require.NoError(t, db.Create(u1).Error)
	u2 := &User{Email: "a@y.com", PasswordHash: hashPassword("secret1")}
	require.NoError(t, db.Create(u2).Error)

	// The self-heal path still hands out distinct names
	require.NoError(t, ensureUsername(db, u1))
	require.NoError(t, ensureUsername(db, u2))
	assert.Equal(t, "a", u1.Username)
	assert.Equal(t, "a2", u2.Username)
}

func TestEnsureUsernameIdempotent(t *testing.T) {
	db := newTestDB(t)

	u := &User{Email: "legacy@example.com", PasswordHash: hashPassword("secret1")}
	require.NoError(t, db.Create(u).Error)
	require.Empty(t, u.Username)

	require.NoError(t, ensureUsername(db, u))
	assert.Equal(t, "legacy", u.Username)

	// A second call must not reassign
	require.NoError(t, ensureUsername(db, u))
	assert.Equal(t, "legacy", u.Username)

	var reloaded User
	require.NoError(t, db.First(&reloaded, u.ID).Error)
	assert.Equal(t, "legacy", reloaded.Username)
}

func TestEmailUnique(t *testing.T) {
	db := newTestDB(t)

	createUser(t, db, "dup@example.com")
	err := db.Create(&User{Email: "dup@example.com", PasswordHash: "x", Username: "other"}).Error
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))
}

func TestToggleLike(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "liker@example.com")
	tw := createTweet(t, db, u, "a tweet")

	var count int64

	require.NoError(t, toggleLike(db, u.ID, tw.ID))
	db.Model(&Like{}).Count(&count)
	assert.EqualValues(t, 1, count)

	// Toggling again returns to the unliked state
	require.NoError(t, toggleLike(db, u.ID, tw.ID))
	db.Model(&Like{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestLikePairUnique(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "liker@example.com")
	tw := createTweet(t, db, u, "a tweet")

	require.NoError(t, db.Create(&Like{UserID: u.ID, TweetID: tw.ID}).Error)
	err := db.Create(&Like{UserID: u.ID, TweetID: tw.ID}).Error
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))
}

func TestDeleteUserCascades(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")

	aliceTweet := createTweet(t, db, alice, "by alice")
	bobTweet := createTweet(t, db, bob, "by bob")

	// Cross-interactions in both directions
	require.NoError(t, db.Create(&Comment{Body: "bob says hi", UserID: bob.ID, TweetID: aliceTweet.ID}).Error)
	require.NoError(t, db.Create(&Comment{Body: "alice says hi", UserID: alice.ID, TweetID: bobTweet.ID}).Error)
	require.NoError(t, db.Create(&Like{UserID: bob.ID, TweetID: aliceTweet.ID}).Error)
	require.NoError(t, db.Create(&Like{UserID: alice.ID, TweetID: bobTweet.ID}).Error)

	require.NoError(t, deleteUser(db, alice.ID))

	// Alice is gone
	assert.Nil(t, getUserByID(db, alice.ID))

	// Her tweet, the comments and likes on it, and her own comments and
	// likes elsewhere are all gone — no orphans remain.
	var count int64
	db.Model(&Tweet{}).Where("user_id = ?", alice.ID).Count(&count)
	assert.EqualValues(t, 0, count)
	db.Model(&Comment{}).Where("tweet_id = ?", aliceTweet.ID).Count(&count)
	assert.EqualValues(t, 0, count)
	db.Model(&Like{}).Where("tweet_id = ?", aliceTweet.ID).Count(&count)
	assert.EqualValues(t, 0, count)
	db.Model(&Comment{}).Where("user_id = ?", alice.ID).Count(&count)
	assert.EqualValues(t, 0, count)
	db.Model(&Like{}).Where("user_id = ?", alice.ID).Count(&count)
	assert.EqualValues(t, 0, count)

	// Bob and his tweet survive untouched
	assert.NotNil(t, getUserByID(db, bob.ID))
	db.Model(&Tweet{}).Where("user_id = ?", bob.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestListTimelineOrder(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "writer@example.com")
	createTweet(t, db, u, "first")
	createTweet(t, db, u, "second")
	createTweet(t, db, u, "third")

	tweets, err := listTimeline(db)
	require.NoError(t, err)
	require.Len(t, tweets, 3)

	// Newest first, authors joined in
	for i := 1; i < len(tweets); i++ {
		assert.False(t, tweets[i-1].CreatedAt.Before(tweets[i].CreatedAt))
	}
	for _, tw := range tweets {
		assert.Equal(t, "writer", tw.User.Username)
	}
}

func TestListUserTweets(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")
	createTweet(t, db, alice, "by alice")
	createTweet(t, db, bob, "by bob")

	tweets, err := listUserTweets(db, alice.ID)
	require.NoError(t, err)
	require.Len(t, tweets, 1)
	assert.True(t, strings.HasPrefix(tweets[0].Body, "by alice"))
}
