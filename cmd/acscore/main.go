// Command acscore builds demo acoustic models and scores or aligns feature
// files through the output-probability cache.
package main

func main() {
	Execute()
}
