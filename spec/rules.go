package spec

import "github.com/adamwoolhether/restbuilder/internal/rules"

func checkRules(tag string) error {
	return rules.Check(tag)
}
