//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// if a { return err }; if b { return err }  =>  if a || b { return err }
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)
}

// wrapping keeps errors inspectable with errors.Is/As at the HTTP and CLI boundaries.
func wrapping(m dsl.Matcher) {
	m.Match(`fmt.Errorf($fmt, $*_, $err)`).
		Where(m["fmt"].Text.Matches(`%v"$`) && m["err"].Type.Is(`error`)).
		Report(`wrap errors with %w, not %v`)
}

// logging keeps every log line on the injected *slog.Logger.
func logging(m dsl.Matcher) {
	m.Match(`log.Printf($*_)`, `log.Println($*_)`, `log.Print($*_)`).
		Where(!m.File().Name.Matches(`_test\.go$`)).
		Report(`use the injected *slog.Logger instead of the log package`)
}

// configEnv keeps environment lookups inside internal/infra/config.
func configEnv(m dsl.Matcher) {
	m.Match(`os.Getenv($_)`, `os.LookupEnv($_)`).
		Where(!m.File().PkgPath.Matches(`/internal/infra/config$`)).
		Report(`read settings through config.Config; only internal/infra/config reads the environment`)
}
