// shaderdump disassembles legacy shader token streams and prints the
// analysis summary the pipeline back ends rely on.
package main

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/swrast/swrast/internal/shader"
)

var log = logrus.New()

func main() {
	root := &cobra.Command{
		Use:   "shaderdump",
		Short: "Disassemble legacy shader token streams",
	}

	var verbose bool
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}
	}

	root.AddCommand(&cobra.Command{
		Use:   "vs <file>",
		Short: "Disassemble a vertex shader",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := readTokens(args[0])
			if err != nil {
				return err
			}
			vs, err := shader.ParseVertexShader(tokens)
			if err != nil {
				return err
			}
			dumpShader(&vs.Shader)
			log.WithFields(logrus.Fields{
				"position_register":   vs.PositionRegister,
				"point_size_register": vs.PointSizeRegister,
				"texldl":              vs.ContainsTexldl(),
			}).Debug("vertex analysis")
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "ps <file>",
		Short: "Disassemble a pixel shader",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := readTokens(args[0])
			if err != nil {
				return err
			}
			ps, err := shader.ParsePixelShader(tokens)
			if err != nil {
				return err
			}
			dumpShader(&ps.Shader)
			log.WithFields(logrus.Fields{
				"depth_override": ps.DepthOverride(),
				"texkill":        ps.ContainsTexkill(),
				"centroid":       ps.ContainsCentroid(),
			}).Debug("pixel analysis")
			return nil
		},
	})

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func readTokens(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%s: size %d is not a whole number of tokens", path, len(data))
	}

	tokens := make([]uint32, len(data)/4)
	for i := range tokens {
		tokens[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return tokens, nil
}

func dumpShader(sh *shader.Shader) {
	log.WithFields(logrus.Fields{
		"type":    fmt.Sprintf("%#04x", uint16(sh.Type)),
		"version": fmt.Sprintf("%d.%d", sh.MajorVersion(), sh.MinorVersion()),
		"length":  sh.Length(),
		"hash":    fmt.Sprintf("%#016x", uint64(sh.Hash())),
	}).Info("parsed shader")

	for _, inst := range sh.Instructions() {
		fmt.Println(inst.String(sh.Type, sh.Version))
	}

	f, i, b := sh.DirtyConstantsF, sh.DirtyConstantsI, sh.DirtyConstantsB
	log.WithFields(logrus.Fields{
		"dirty_constants_f": f,
		"dirty_constants_i": i,
		"dirty_constants_b": b,
		"dynamic_branching": sh.ContainsDynamicBranching(),
		"sampler_mask":      fmt.Sprintf("%#04x", sh.SamplerMask()),
	}).Info("analysis")
}
