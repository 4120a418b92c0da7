package main

import "github.com/KaramelBytes/trajclust/cmd"

func main() {
	cmd.Execute()
}
