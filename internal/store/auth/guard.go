package auth

import "strings"

// HomePath — куда уводят авторизованного пользователя со страниц для гостей.
const HomePath = "/"

// Guard решает, можно ли открыть страницу с текущим состоянием авторизации.
type Guard struct {
	public    map[string]struct{}
	guestOnly map[string]struct{}
}

// NewGuard создает Guard со стандартными страницами витрины.
func NewGuard() *Guard {
	return NewGuardWith(
		[]string{HomePath, LoginPath, "/reset-password"},
		[]string{LoginPath, "/reset-password"},
	)
}

// NewGuardWith создает Guard с заданными публичными и гостевыми страницами.
func NewGuardWith(public, guestOnly []string) *Guard {
	g := &Guard{
		public:    make(map[string]struct{}, len(public)),
		guestOnly: make(map[string]struct{}, len(guestOnly)),
	}
	for _, p := range public {
		g.public[strings.ToLower(p)] = struct{}{}
	}
	for _, p := range guestOnly {
		g.guestOnly[strings.ToLower(p)] = struct{}{}
	}
	return g
}

// Redirect возвращает путь для перенаправления и true, если открыть path нельзя.
func (g *Guard) Redirect(path string, authenticated bool) (string, bool) {
	path = strings.ToLower(path)

	if _, ok := g.guestOnly[path]; ok && authenticated {
		return HomePath, true
	}
	if _, ok := g.public[path]; ok {
		return "", false
	}
	if !authenticated {
		return LoginPath, true
	}
	return "", false
}
