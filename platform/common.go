package platform

const (
	/*
		MaxExternalProgramOutputBytes is the maximum number of bytes (combined stdout and stderr) to keep for an
		external program for caller to retrieve.
	*/
	MaxExternalProgramOutputBytes = 1024 * 1024

	/*
	   CommonPATH is a PATH environment variable value that includes most common executable locations across Unix and
	   Linux, used in case the device tool is launched by a supervisor that resets PATH to something unusually bare.
	*/
	CommonPATH = "/bin:/sbin:/usr/bin:/usr/sbin:/usr/local/bin:/usr/local/sbin:/opt/bin:/opt/sbin"
)
