package commands

import (
	"ChipTrack/internal/config"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// ErrUsage - неверные аргументы; диспетчер печатает строку Usage команды.
var ErrUsage = errors.New("usage")

// Command - подкоманда администраторского CLI.
type Command interface {
	// Name - имя, под которым команду вызывают, например "passwd".
	Name() string
	// Description - одна строка для общей справки.
	Description() string
	// Usage - синтаксис, например "passwd <username> <newPassword>".
	Usage() string
	// Run выполняет команду; args не содержит имени команды.
	Run(ctx context.Context, cfg *config.Config, args []string) error
}

var registry = map[string]Command{}

// Out - куда команды пишут результат. В тестах подменяется буфером.
var Out io.Writer = os.Stdout

// RegisterCmd регистрирует команду; вызывается из init() файла команды.
func RegisterCmd(cmd Command) {
	registry[strings.ToLower(cmd.Name())] = cmd
}

func Get(name string) (Command, bool) {
	c, ok := registry[strings.ToLower(name)]
	return c, ok
}

// List возвращает команды в алфавитном порядке.
func List() []Command {
	list := make([]Command, 0, len(registry))
	for _, c := range registry {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

// FormatGlobalUsage собирает общую справку по всем командам.
func FormatGlobalUsage() string {
	var b strings.Builder
	b.WriteString("ChipTrack admin CLI\n\n")
	b.WriteString("Usage:\n  chiptrack-cli [-d <database uri>] <command> [args]\n\n")
	b.WriteString("Commands:\n")
	for _, c := range List() {
		fmt.Fprintf(&b, "  %-34s %s\n", c.Usage(), c.Description())
	}
	b.WriteString("\nThe database is taken from DATABASE_URI or -d, the same as for the server.\n")
	return b.String()
}
