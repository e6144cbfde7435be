// Command hash-generator prints bcrypt hashes for seeding accounts directly
// into the users table, for example the first admin.
//
// Usage:
//
//	echo -n 'password' | hash-generator -cost 12
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/phrazzld/vidgen-api/internal/service/auth"
)

func main() {
	cost := flag.Int("cost", 10, "bcrypt cost")
	flag.Parse()

	passwords := flag.Args()
	if len(passwords) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if line := strings.TrimRight(scanner.Text(), "\r\n"); line != "" {
				passwords = append(passwords, line)
			}
		}
		if err := scanner.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "read stdin: %v\n", err)
			os.Exit(1)
		}
	}
	if len(passwords) == 0 {
		fmt.Fprintln(os.Stderr, "no password given")
		os.Exit(2)
	}

	for _, password := range passwords {
		hash, err := auth.HashPassword(password, *cost)
		if err != nil {
			fmt.Fprintf(os.Stderr, "hash: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(hash)
	}
}
