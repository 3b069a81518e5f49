package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "cafe", Slugify("Cafe"))
	assert.Equal(t, "dang-delicious", Slugify("  Dang Delicious  "))
	assert.Equal(t, "", Slugify("   "))
}

func TestResolveSlug(t *testing.T) {
	tests := []struct {
		name     string
		siblings []string
		want     string
	}{
		{name: "no siblings", siblings: nil, want: "cafe"},
		{name: "one sibling", siblings: []string{"cafe"}, want: "cafe-1"},
		{name: "two siblings", siblings: []string{"cafe", "cafe-1"}, want: "cafe-2"},
		{name: "suffix already taken", siblings: []string{"cafe-1"}, want: "cafe-2"},
		{name: "case insensitive", siblings: []string{"Cafe", "CAFE-1"}, want: "cafe-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveSlug("cafe", tt.siblings))
		})
	}
}

func TestSlugFamilyPattern(t *testing.T) {
	assert.Equal(t, `^cafe(-[0-9]+)?$`, SlugFamilyPattern("cafe"))
	assert.Equal(t, `^a\.b(-[0-9]+)?$`, SlugFamilyPattern("a.b"))
}

func TestNewLocation(t *testing.T) {
	lng, lat := -79.8711, 43.2557

	loc, err := NewLocation(&lng, &lat, "  123 King St  ")
	require.NoError(t, err)
	assert.Equal(t, PointType, loc.Type)
	assert.Equal(t, lng, loc.Lng())
	assert.Equal(t, lat, loc.Lat())
	assert.Equal(t, "123 King St", loc.Address)

	_, err = NewLocation(nil, nil, "")
	v, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{"You must supply coordinates!", "You must supply an address!"}, v.Messages)

	bad := 200.0
	_, err = NewLocation(&bad, &lat, "somewhere")
	v, ok = AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{"Longitude must be between -180 and 180."}, v.Messages)
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" Wifi ", "", "Licensed", "Wifi", "  "})
	assert.Equal(t, []string{"Wifi", "Licensed"}, got)
	assert.Empty(t, NormalizeTags(nil))
}

func TestStoreOwnedBy(t *testing.T) {
	s := Store{AuthorID: "u1"}
	assert.True(t, s.OwnedBy("u1"))
	assert.False(t, s.OwnedBy("u2"))
	assert.False(t, Store{}.OwnedBy(""))
}

func TestUserGravatar(t *testing.T) {
	u := User{Email: "  MyEmailAddress@example.com "}
	assert.Equal(t, "https://www.gravatar.com/avatar/0bc83cb571cd1c50ba6f3e8a78ef1346?s=200", u.Gravatar())
}

func TestUserHasHeart(t *testing.T) {
	u := User{Hearts: []string{"a", "b"}}
	assert.True(t, u.HasHeart("b"))
	assert.False(t, u.HasHeart("c"))
}

func TestUserResetTokenValid(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	expires := now.Add(time.Hour)
	u := User{ResetPasswordToken: "tok", ResetPasswordExpires: &expires}

	assert.True(t, u.ResetTokenValid("tok", now))
	assert.False(t, u.ResetTokenValid("other", now))
	assert.False(t, u.ResetTokenValid("", now))
	assert.False(t, u.ResetTokenValid("tok", expires))
	assert.False(t, User{ResetPasswordToken: "tok"}.ResetTokenValid("tok", now))
}

func TestReviewValidate(t *testing.T) {
	assert.NoError(t, Review{Text: "tasty", Rating: 5}.Validate())

	err := Review{Text: "  ", Rating: 0}.Validate()
	v, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{"Your review must have text!", "Rating must be between 1 and 5."}, v.Messages)
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError("one.", "two.")
	assert.Equal(t, "one. two.", err.Error())

	_, ok := AsValidation(ErrNotFound)
	assert.False(t, ok)
}
