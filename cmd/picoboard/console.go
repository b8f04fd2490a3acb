package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/ajanata/pico-drivers/console"
	"github.com/ajanata/pico-drivers/zs042"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive prompt for reading and setting the real-time clock",
	Long:  "Run the serial console commands (time, set, echo, help) from a local prompt. Exit with Ctrl-D or exit.",
	RunE:  runConsole,
}

func runConsole(cmd *cobra.Command, args []string) error {
	a, err := newApp("console")
	if err != nil {
		return err
	}
	defer a.close()

	b, err := a.bus()
	if err != nil {
		return err
	}
	rtc := zs042.New(b)
	rtc.Configure(zs042.Config{Address: a.cfg.RTC.Address})

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "rtc> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("time"),
			readline.PcItem("set"),
			readline.PcItem("echo"),
			readline.PcItem("help"),
			readline.PcItem("exit"),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	con := &console.Console{RTC: &rtc, Out: rl.Stdout(), Logger: a.logger}
	return prompt(rl, con)
}

// prompt runs lines from rl until EOF or exit.
func prompt(rl *readline.Instance, con *console.Console) error {
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := con.Exec(line); err != nil {
			fmt.Fprintf(rl.Stderr(), "ERR %v\n", err)
		}
	}
}
