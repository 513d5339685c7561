// Command hashpass prints the argon2id hash for OPERATOR_PASSWORD_HASH. The
// password is read from the first line of stdin.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/diagnosis/boxbook/pkg/auth"
	"github.com/diagnosis/boxbook/pkg/logger"
)

func main() {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		logger.Error("Failed to read password", "error", err)
		os.Exit(1)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		logger.Error("Empty password")
		os.Exit(1)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		logger.Error("Failed to hash password", "error", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
