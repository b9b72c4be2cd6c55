// Command filtarr inspects torrents grabbed by Radarr and Sonarr and
// blocklists releases that carry executables or archives.
package main

func main() {
	Execute()
}
