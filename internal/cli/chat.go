package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/eora/internal/presentation/tui"
	"github.com/aretw0/eora/pkg/domain"
	"github.com/aretw0/eora/pkg/ports"
	"golang.org/x/term"
)

const chatHelp = `Команды:
  /level easy|medium|hard  сменить уровень сложности ответа
  /examples                показать примеры вопросов
  /stats                   статистика сессии
  /clear                   очистить историю
  /exit                    выйти`

// ChatOptions configure an interactive chat.
type ChatOptions struct {
	In        io.Reader
	Out       io.Writer
	SessionID string
	Level     domain.ComplexityLevel
	Render    func(string) (string, error) // Markdown renderer, plain when nil
}

// TerminalRenderer returns a glamour renderer sized to f when it is a terminal,
// and the plain renderer otherwise.
func TerminalRenderer(f *os.File) func(string) (string, error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return tui.PlainRenderer
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		width = 80
	}
	return tui.NewRenderer(min(width, 120))
}

// RunChat reads questions line by line and prints the answers until the input
// ends, the user exits or ctx is cancelled.
func RunChat(ctx context.Context, assistant ports.Assistant, opts ChatOptions) error {
	if opts.Render == nil {
		opts.Render = tui.PlainRenderer
	}
	if opts.SessionID == "" {
		opts.SessionID = domain.NewID("cli")
	}
	level := opts.Level
	if level == "" {
		level = domain.LevelEasy
	}

	out := opts.Out
	printSystemMessage(out, "Сессия %s, уровень: %s. /help для списка команд.", opts.SessionID, level.Label())

	scanner := bufio.NewScanner(opts.In)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") || line == "exit" || line == "quit" {
			done, err := runCommand(ctx, assistant, opts.SessionID, &level, line, out)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
			continue
		}

		reply, err := assistant.Ask(ctx, opts.SessionID, line, level)
		if errors.Is(err, domain.ErrInvalidInput) {
			printSystemMessage(out, "Вопрос отклонен: %v", err)
			continue
		}
		if err != nil {
			return err
		}

		rendered, err := opts.Render(tui.FormatReply(reply))
		if err != nil {
			rendered = reply.Formatted + "\n"
		}
		fmt.Fprint(out, rendered)
	}
}

func runCommand(ctx context.Context, assistant ports.Assistant, sessionID string, level *domain.ComplexityLevel, line string, out io.Writer) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/exit", "/quit", "exit", "quit":
		printSystemMessage(out, "До свидания!")
		return true, nil
	case "/help":
		fmt.Fprintln(out, chatHelp)
	case "/level":
		if len(fields) < 2 {
			printSystemMessage(out, "Текущий уровень: %s", level.Label())
			return false, nil
		}
		l, err := domain.ParseComplexity(fields[1])
		if err != nil {
			printSystemMessage(out, "%v", err)
			return false, nil
		}
		*level = l
		printSystemMessage(out, "Уровень: %s", l.Label())
	case "/examples":
		for i, q := range assistant.Examples() {
			fmt.Fprintf(out, "%d. %s\n", i+1, q)
		}
	case "/stats":
		stats, err := assistant.Stats(ctx, sessionID)
		if err != nil {
			return false, err
		}
		printSystemMessage(out, "Сообщений: %d, документов: %d, память: %.1f MB", stats.Messages, stats.Documents, stats.MemoryMB)
	case "/clear":
		if err := assistant.Clear(ctx, sessionID); err != nil {
			return false, err
		}
		printSystemMessage(out, "История очищена")
	default:
		printSystemMessage(out, "Неизвестная команда %s", fields[0])
	}
	return false, nil
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(out io.Writer, format string, args ...any) {
	fmt.Fprintf(out, ">>> %s\n", fmt.Sprintf(format, args...))
}
