package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "screenrec",
		Short: "Record a web page or a piece of html as a video",
		Long: `Open a url or an html snippet in a browser window, record the window as webm,
and convert the recording to mp4 or mov with ffmpeg.`,
		SilenceUsage: true,
	}

	fs := root.PersistentFlags()
	fs.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.screenrec.yaml)")
	fs.Bool("show", false, "show the browser window")
	fs.Bool("trace", false, "log every line ffmpeg prints")
	fs.String("bin", "", "path of the browser executable")
	fs.String("url", "", "control url of a running browser, no browser will be launched when set")
	fs.String("ffmpeg", "", "path of the ffmpeg executable")
	fs.String("dir", "", "dir to save the recordings")
	settingsFlags(fs)

	config := func(cmd *cobra.Command) (*Config, error) {
		return loadConfig(cfgFile, cmd.Flags())
	}

	root.AddCommand(
		newServeCmd(config),
		newRecordCmd(config),
		newConvertCmd(config),
	)

	return root
}
