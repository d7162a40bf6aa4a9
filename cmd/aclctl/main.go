package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/DeploymentBot3000/DeploymentBot/internal/repository"
)

func load(fn string) *repository.ACLFile {
	acl, err := repository.ReadACLFile(fn)
	if err != nil {
		return new(repository.ACLFile)
	}

	return acl
}

func list(acl *repository.ACLFile) {
	for _, id := range acl.Admins {
		fmt.Printf("admin\t%s\n", id)
	}

	for _, id := range acl.Hosts {
		fmt.Printf("host\t%s\n", id)
	}

	for _, a := range acl.Accounts {
		state := "enabled"
		if a.Disabled {
			state = "disabled"
		}

		fmt.Printf("account\t%s\t%s\n", a.Login, state)
	}
}

func has(ids []string, id string) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}

	return false
}

func readPassword() (string, error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("password: ")
	p1, _ := reader.ReadString('\n')
	fmt.Print("repeat password: ")
	p2, _ := reader.ReadString('\n')

	if p1 != p2 {
		return "", fmt.Errorf("password mismatch")
	}

	return strings.TrimRight(p1, "\r\n"), nil
}

func main() {
	file := flag.String("file", "acl.yml", "acl file")
	admin := flag.String("admin", "", "user id to grant admin")
	host := flag.String("host", "", "user id to grant hosting")
	account := flag.String("account", "", "admin api login to create or update")
	passwd := flag.String("password", "", "password for the account")
	flag.Parse()

	acl := load(*file)

	if *admin == "" && *host == "" && *account == "" {
		list(acl)
		return
	}

	if *admin != "" && !has(acl.Admins, *admin) {
		acl.Admins = append(acl.Admins, *admin)
	}

	if *host != "" && !has(acl.Hosts, *host) {
		acl.Hosts = append(acl.Hosts, *host)
	}

	if *account != "" {
		pass := *passwd

		if pass == "" {
			var err error
			if pass, err = readPassword(); err != nil {
				fmt.Println(err.Error())
				return
			}
		}

		var found *repository.Account

		for _, a := range acl.Accounts {
			if a.Login == *account {
				found = a
				break
			}
		}

		if found == nil {
			found = &repository.Account{Login: *account}
			acl.Accounts = append(acl.Accounts, found)
		}

		if err := found.SetPassword(pass); err != nil {
			fmt.Println(err.Error())
			return
		}
	}

	if err := repository.WriteACLFile(*file, acl); err != nil {
		fmt.Println(err.Error())
	}
}
