package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/profile"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"numagraph_go/bp"
	"numagraph_go/engine"
	"numagraph_go/graphutils"
	"numagraph_go/numautils"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s input-file [maxIter] [-result] [-s] [-b] [-profile]\n", os.Args[0])
		os.Exit(1)
	}
	iFile := os.Args[1]
	maxIter := -1
	needResult, symmetric, binaryFmt, prof := false, false, false, false
	for _, arg := range os.Args[2:] {
		switch arg {
		case "-result":
			needResult = true
		case "-s":
			symmetric = true
		case "-b":
			binaryFmt = true
		case "-profile":
			prof = true
		default:
			v, err := strconv.Atoi(arg)
			if err != nil {
				log.Fatal().Str("arg", arg).Msg("unrecognised argument")
			}
			maxIter = v
		}
	}
	if prof {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}

	topo := numautils.DetectOrFake()
	if err := numautils.SetInterleaveAll(topo); err != nil {
		log.Warn().Err(err).Msg("interleave policy not set")
	}

	g, err := graphutils.ReadGraph(iFile, symmetric, binaryFmt)
	if err != nil {
		log.Fatal().Err(err).Msg("load graph")
	}

	alg := bp.New(g)
	eng, err := engine.New(g, topo, engine.Config{
		MaxIter: maxIter,
		Pin:     !topo.IsFake(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("configure engine")
	}
	if err := eng.Run(alg); err != nil {
		log.Fatal().Err(err).Msg("run")
	}

	if needResult {
		w := bufio.NewWriter(os.Stdout)
		for i := 0; i < g.N; i++ {
			fmt.Fprintf(w, "%d", i)
			for s := 0; s < bp.NStates; s++ {
				fmt.Fprintf(w, "\t%.9e", alg.VertDCurr[i].Product[s])
			}
			fmt.Fprintln(w)
		}
		w.Flush()
	}
}
