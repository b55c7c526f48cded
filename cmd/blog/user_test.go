package blog

import (
	"math"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_PasswordHashing(t *testing.T) {
	t.Parallel()

	u := User{Username: "susan", Email: "susan@example.com"}
	assert.False(t, u.CheckPassword("cat"), "no hash set")

	require.NoError(t, u.SetPassword("cat"))
	require.NotNil(t, u.PasswordHash)
	assert.NotEqual(t, "cat", *u.PasswordHash)
	assert.True(t, u.CheckPassword("cat"))
	assert.False(t, u.CheckPassword("dog"))
	assert.False(t, u.CheckPassword(""))
}

func TestUser_CheckPassword_MalformedHash(t *testing.T) {
	t.Parallel()

	bad := "pbkdf2:sha256:600000$abc$def"
	u := User{PasswordHash: &bad}
	assert.False(t, u.CheckPassword("anything"))

	empty := ""
	u.PasswordHash = &empty
	assert.False(t, u.CheckPassword(""))

	var nilUser *User
	assert.False(t, nilUser.CheckPassword("x"))
}

func TestUser_Avatar(t *testing.T) {
	t.Parallel()

	u := User{Username: "john", Email: "john@example.com"}
	assert.Equal(t,
		"https://www.gravatar.com/avatar/d4c74594d841139328695756648b6bd6?d=identicon&s=128",
		u.Avatar(128),
	)

	upper := User{Email: "John@Example.COM"}
	assert.Equal(t, u.Avatar(36), upper.Avatar(36), "email is lower-cased before hashing")
	assert.Equal(t, u.Avatar(36), u.Avatar(36))
	assert.Regexp(t, regexp.MustCompile(`/avatar/[0-9a-f]{32}\?d=identicon&s=36$`), u.Avatar(36))
}

func TestUser_StringAndAbout(t *testing.T) {
	t.Parallel()

	u := User{Username: "miguel"}
	assert.Equal(t, "<User miguel>", u.String())
	assert.Equal(t, "", u.About())

	bio := "I write tutorials."
	u.AboutMe = &bio
	assert.Equal(t, bio, u.About())

	p := Post{Body: "my first post!"}
	assert.Equal(t, "<Post my first post!>", p.String())
}

func TestPage_Normalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   Page
		want Page
	}{
		{Page{}, Page{Number: 1, Size: DefaultPageSize}},
		{Page{Number: -3, Size: 5}, Page{Number: 1, Size: 5}},
		{Page{Number: 2, Size: 1000}, Page{Number: 2, Size: MaxPageSize}},
		{Page{Number: math.MaxInt, Size: 20}, Page{Number: math.MaxInt32 / 20, Size: 20}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.in.Normalize())
	}

	pp := PostPage{Page: Page{Number: 2, Size: 3}, Total: 7}
	assert.True(t, pp.HasNext())
	assert.True(t, pp.HasPrev())
	assert.Equal(t, 3, pp.NextNum())
	assert.Equal(t, 1, pp.PrevNum())

	last := PostPage{Page: Page{Number: 3, Size: 3}, Total: 7}
	assert.False(t, last.HasNext())
}

func TestErrors_Classification(t *testing.T) {
	t.Parallel()

	c := ConflictError{Op: "blog.CreateUser", Field: "email"}
	assert.True(t, IsConflict(c))
	assert.Equal(t, "email", ConflictField(c))
	assert.Equal(t, "blog.CreateUser: conflict: email", c.Error())

	nf := NotFoundError{Op: "blog.GetUserByID", Resource: "user"}
	assert.True(t, IsNotFound(nf))
	assert.False(t, IsConflict(nf))

	inv := invalid("blog.CreatePost", "body is required")
	assert.True(t, IsInvalidInput(inv))
	assert.Equal(t, "blog.CreatePost: invalid_input: body is required", inv.Error())

	assert.Equal(t, "username", fieldFromConstraint("UNIQUE constraint failed: users.username"))
	assert.Equal(t, "email", fieldFromConstraint("uq_users_email"))
	assert.Equal(t, "unique", fieldFromConstraint("something_else"))
}
