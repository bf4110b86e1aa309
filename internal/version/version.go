package version

import "fmt"

// Заполняются через -ldflags при сборке.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает версию, коммит и дату сборки.
func Info() (v, c, d string) { return version, commit, date }

// GetVersion возвращает версию сборки.
func GetVersion() string { return version }

func String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", version, commit, date)
}

// UserAgent — значение заголовка User-Agent для запросов к API витрины.
func UserAgent() string {
	return fmt.Sprintf("storefront/%s (+%s)", version, commit)
}
