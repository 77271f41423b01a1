package main

import "meal-admin/cmd"

func main() {
	cmd.Execute()
}
