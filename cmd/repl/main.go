// Command repl is a line-mode SQL shell over a single nimbus database
// file. Statements are accumulated until a trailing ';', then executed;
// lines starting with '.' are meta-commands.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/nimbusdb/nimbus/internal/config"
	"github.com/nimbusdb/nimbus/internal/db"
	"github.com/nimbusdb/nimbus/internal/service"
)

func main() {
	cfg, err := config.ParseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "flag error:", err)
		os.Exit(1)
	}

	instanceID := uuid.New()
	fmt.Printf("nimbus REPL %s (db=%s, frames=%d). ';' ends a statement, '.help' for help.\n",
		instanceID, cfg.DBPath, cfg.BufferFrames)

	eng, err := db.Open(cfg.DBPath, cfg.BufferFrames)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open error:", err)
		os.Exit(1)
	}
	defer eng.Close()

	if cfg.AutoFlush {
		ticker, err := service.NewTicker(eng, cfg.AutoFlushInterval)
		if err != nil {
			fmt.Fprintln(os.Stderr, "auto-flush ticker error:", err)
			os.Exit(1)
		}
		defer ticker.Stop()
	}

	runREPL(eng, cfg.Format)
}

func runREPL(eng *db.Engine, format string) {
	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 1024), 4*1024*1024)

	interactive := false
	if fi, err := os.Stdin.Stat(); err == nil {
		interactive = (fi.Mode() & os.ModeCharDevice) != 0
	}

	var buf strings.Builder
	firstPrompt := true
	for {
		if interactive {
			if buf.Len() == 0 {
				if !firstPrompt {
					fmt.Println()
				}
				firstPrompt = false
				fmt.Print("sql> ")
			} else {
				fmt.Print(" ... ")
			}
		}

		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				fmt.Fprintln(os.Stderr, "read error:", err)
			}
			return
		}

		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		if buf.Len() == 0 && strings.HasPrefix(line, ".") {
			if handleMeta(eng, line) {
				continue
			}
		}

		buf.WriteString(line)
		buf.WriteString(" ")
		if !strings.HasSuffix(line, ";") {
			continue
		}
		stmt := strings.TrimSuffix(strings.TrimSpace(buf.String()), ";")
		buf.Reset()

		res, err := eng.Execute(stmt)
		if err != nil {
			fmt.Println("ERR:", err)
			continue
		}
		printResult(res, format)
	}
}

func handleMeta(eng *db.Engine, line string) bool {
	switch {
	case line == ".help":
		fmt.Println(`.help                 this message
.exit                 quit the REPL
.clear                drop every user table
.tables               list tables
.describe <table>     show a table's columns`)
		return true
	case line == ".exit":
		os.Exit(0)
	case line == ".clear":
		if _, err := eng.Execute("CLEAR"); err != nil {
			fmt.Println("ERR:", err)
		}
		return true
	case line == ".tables":
		if _, err := eng.Execute("SHOW TABLES"); err != nil {
			fmt.Println("ERR:", err)
			return true
		}
		res, _ := eng.Execute("SHOW TABLES")
		printResult(res, "table")
		return true
	case strings.HasPrefix(line, ".describe "):
		name := strings.TrimSpace(strings.TrimPrefix(line, ".describe "))
		describeTable(eng, name)
		return true
	}
	return false
}

func describeTable(eng *db.Engine, name string) {
	res, err := eng.Execute(fmt.Sprintf("SELECT * FROM %s", name))
	if err != nil {
		fmt.Println("ERR:", err)
		return
	}
	for _, c := range res.Columns {
		fmt.Println(c)
	}
}

func printResult(res *db.Result, format string) {
	if res == nil {
		return
	}
	if res.Message != "" {
		fmt.Println(res.Message)
		return
	}
	if res.Count != nil {
		fmt.Printf("OK, %d row(s) affected\n", *res.Count)
		return
	}
	switch strings.ToLower(format) {
	case "csv", "tsv":
		sep := ","
		if format == "tsv" {
			sep = "\t"
		}
		fmt.Println(strings.Join(res.Columns, sep))
		for _, row := range res.Rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = valueString(v.Val)
			}
			fmt.Println(strings.Join(cells, sep))
		}
	default:
		printTable(res)
	}
}

func valueString(v any) string {
	switch x := v.(type) {
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func printTable(res *db.Result) {
	widths := make([]int, len(res.Columns))
	for i, c := range res.Columns {
		widths[i] = len(c)
	}
	cellRows := make([][]string, len(res.Rows))
	for r, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = valueString(v.Val)
			if len(cells[i]) > widths[i] {
				widths[i] = len(cells[i])
			}
		}
		cellRows[r] = cells
	}

	printRow(res.Columns, widths)
	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	printRow(sep, widths)
	for _, cells := range cellRows {
		printRow(cells, widths)
	}
}

func printRow(cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = c + strings.Repeat(" ", widths[i]-len(c))
	}
	fmt.Println(strings.Join(parts, " | "))
}
