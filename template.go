package main

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// commandExecutor is the slice of the rcon channel the template engine needs
// to resolve command substitutions.
type commandExecutor interface {
	exec(ctx context.Context, cmd string, large bool) (string, error)
}

// templateEngine expands the placeholder syntax used in user facing messages:
//
//	{random|a|b|c}   one of the options, picked at random
//	{cmd|k:v...}     the first line of a console command's output, mapped
//	{0|k:v...}       the positional argument, mapped through k:v pairs
//	{0}              the positional argument verbatim
//
// Passes run in that order, so a random pick can itself resolve to a
// positional placeholder.
type templateEngine struct {
	executor    commandExecutor
	rxRandom    *regexp.Regexp
	rxCommand   *regexp.Regexp
	rxMappedArg *regexp.Regexp
	rxPlainArg  *regexp.Regexp
}

func newTemplateEngine(executor commandExecutor) templateEngine {
	return templateEngine{
		executor:    executor,
		rxRandom:    regexp.MustCompile(`\{random\|([^{}]+)}`),
		rxCommand:   regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)((?:\|[^|{}]+:[^|{}]*)*)}`),
		rxMappedArg: regexp.MustCompile(`\{(\d+)((?:\|[^|{}]+:[^|{}]*)+)}`),
		rxPlainArg:  regexp.MustCompile(`\{(\d+)}`),
	}
}

// Format expands every placeholder in msg against the positional args.
func (t templateEngine) Format(ctx context.Context, msg string, args ...string) string {
	msg = t.expandRandom(msg)
	msg = t.expandCommands(ctx, msg)
	msg = t.expandMappedArgs(msg, args)
	msg = t.expandPlainArgs(msg, args)

	return msg
}

func (t templateEngine) expandRandom(msg string) string {
	return t.rxRandom.ReplaceAllStringFunc(msg, func(match string) string {
		options := strings.Split(t.rxRandom.FindStringSubmatch(match)[1], "|")

		return options[RandInt(len(options))]
	})
}

// expandCommands resolves named placeholders by running them as console
// commands and substituting the first line of output, optionally remapped.
// A channel failure substitutes a visible marker instead of dropping the
// message entirely.
func (t templateEngine) expandCommands(ctx context.Context, msg string) string {
	return t.rxCommand.ReplaceAllStringFunc(msg, func(match string) string {
		pieces := t.rxCommand.FindStringSubmatch(match)
		name := pieces[1]

		if name == "random" {
			return match
		}

		if t.executor == nil {
			return "ERROR"
		}

		resp, errExec := t.executor.exec(ctx, name, false)
		if errExec != nil {
			return "ERROR"
		}

		value, _, _ := strings.Cut(resp, "\n")
		value = strings.TrimSpace(value)

		if mapped, found := parseMappings(pieces[2])[value]; found {
			return mapped
		}

		return value
	})
}

func (t templateEngine) expandMappedArgs(msg string, args []string) string {
	return t.rxMappedArg.ReplaceAllStringFunc(msg, func(match string) string {
		pieces := t.rxMappedArg.FindStringSubmatch(match)

		index, errIndex := strconv.Atoi(pieces[1])
		if errIndex != nil || index >= len(args) {
			return match
		}

		if mapped, found := parseMappings(pieces[2])[args[index]]; found {
			return mapped
		}

		return args[index]
	})
}

func (t templateEngine) expandPlainArgs(msg string, args []string) string {
	return t.rxPlainArg.ReplaceAllStringFunc(msg, func(match string) string {
		pieces := t.rxPlainArg.FindStringSubmatch(match)

		index, errIndex := strconv.Atoi(pieces[1])
		if errIndex != nil || index >= len(args) {
			return match
		}

		return args[index]
	})
}

// parseMappings splits a "|k:v|k:v" tail into a lookup table. Malformed pairs
// are skipped rather than failing the whole substitution.
func parseMappings(tail string) map[string]string {
	mappings := map[string]string{}

	for _, pair := range strings.Split(tail, "|") {
		if pair == "" {
			continue
		}

		key, value, found := strings.Cut(pair, ":")
		if !found {
			continue
		}

		mappings[key] = value
	}

	return mappings
}

var _ commandExecutor = rconConnection{}
