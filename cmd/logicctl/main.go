// Command logicctl queries and updates a running logic system.
package main

func main() {
	Execute()
}
