package main

import "github.com/doismellburning/cwkey/src/cm108"

func main() {
	cm108.Main()
}
