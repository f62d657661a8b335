package main

import cwkey "github.com/doismellburning/cwkey/src"

func main() {
	cwkey.CW2WavMain()
}
