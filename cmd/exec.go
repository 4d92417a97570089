package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"redis-go/cmd/util"
	"redis-go/resp"

	"github.com/spf13/cobra"
)

var errLost = errors.New("connection lost before all replies arrived")

var execCmd = &cobra.Command{
	Use:   "exec [command [args...]]",
	Short: "Pipeline commands and print their replies",
	Long: `Sends the command given as arguments, or one command per line read from
stdin, as a single pipeline and prints the replies in order.

  redispipe exec SET greeting hello
  printf 'INCR hits\nGET hits\n' | redispipe exec`,
	RunE: runExec,
}

func init() {
	util.SetupClientFlags(execCmd)
}

type indexedReply struct {
	index int
	reply resp.Reply
}

func runExec(cmd *cobra.Command, args []string) error {
	commands := [][]string{args}
	if len(args) == 0 {
		var err error
		if commands, err = readCommands(cmd.InOrStdin()); err != nil {
			return err
		}
	}
	if len(commands) == 0 {
		return errors.New("no commands given")
	}

	cli, lost, err := util.Connect()
	if err != nil {
		return err
	}
	defer cli.Close()

	replies := make(chan indexedReply, len(commands))
	p := cli.Pipeline()
	for i, command := range commands {
		p.Send(command, func(r resp.Reply) { replies <- indexedReply{i, r} })
	}
	if err := p.Commit().Err(); err != nil {
		return err
	}
	plog.Debugf("sent %d commands to %s", p.Queued(), util.Endpoint())

	results := make([]resp.Reply, len(commands))
	timeout := time.After(util.Timeout())
	for received := 0; received < len(commands); received++ {
		var r indexedReply
		select {
		case r = <-replies:
		case <-lost:
			select {
			case r = <-replies:
			default:
				printReplies(cmd.OutOrStdout(), commands, results[:received])
				return errLost
			}
		case <-timeout:
			printReplies(cmd.OutOrStdout(), commands, results[:received])
			return fmt.Errorf("timed out after %d of %d replies", received, len(commands))
		}
		results[r.index] = r.reply
	}

	printReplies(cmd.OutOrStdout(), commands, results)
	return nil
}

// readCommands splits every non-empty line into a command, lines starting with # are skipped.
func readCommands(r io.Reader) ([][]string, error) {
	var commands [][]string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		commands = append(commands, strings.Fields(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading commands: %w", err)
	}
	return commands, nil
}

func printReplies(w io.Writer, commands [][]string, replies []resp.Reply) {
	for i, reply := range replies {
		if len(commands) > 1 {
			fmt.Fprintf(w, "> %s\n", strings.Join(commands[i], " "))
		}
		fmt.Fprintln(w, reply.String())
	}
}
