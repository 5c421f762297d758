// Command formflow validates, runs and serves registration forms.
package main

func main() {
	Execute()
}
