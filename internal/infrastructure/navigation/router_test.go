package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouter(t *testing.T) {
	router := NewRouter("")
	assert.Equal(t, "/", router.CurrentPath())

	var notified []string
	router.OnRedirect(func(target string) {
		assert.Equal(t, target, router.CurrentPath())
		notified = append(notified, target)
	})

	router.Navigate("/tutor/courses")
	assert.Equal(t, "/tutor/courses", router.CurrentPath())
	assert.Empty(t, notified, "navigation is not a redirect")

	router.Redirect("/tutor/login")
	router.Redirect("/login")

	assert.Equal(t, "/login", router.CurrentPath())
	assert.Equal(t, []string{"/tutor/login", "/login"}, notified)
}

func TestRouter_EveryListenerIsNotified(t *testing.T) {
	router := NewRouter("/admin")

	var first, second string
	router.OnRedirect(func(target string) { first = target })
	router.OnRedirect(func(target string) { second = target })

	router.Redirect("/admin/login")

	assert.Equal(t, "/admin/login", first)
	assert.Equal(t, "/admin/login", second)
}
