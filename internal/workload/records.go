package workload

import "github.com/lucasnoah/sysbenchkit/internal/schema"

// Aggregate is an avg/stddev pair reported per thread.
type Aggregate struct {
	Avg    float64 `json:"avg" yaml:"avg"`
	Stddev float64 `json:"stddev" yaml:"stddev"`
}

// LatencyAggregates holds the "Latency (ms)" section.
type LatencyAggregates struct {
	Avg             float64 `json:"avg" yaml:"avg"`
	Min             float64 `json:"min" yaml:"min"`
	Max             float64 `json:"max" yaml:"max"`
	P95thpercentile float64 `json:"P95thpercentile" yaml:"P95thpercentile"`
	Sum             float64 `json:"sum" yaml:"sum"`
}

// ThreadsFairness holds the "Threads fairness" section.
type ThreadsFairness struct {
	Events        Aggregate `json:"events" yaml:"events"`
	ExecutionTime Aggregate `json:"executiontime" yaml:"executiontime"`
}

// CPUSpeed holds the "CPU speed" section.
type CPUSpeed struct {
	EventsPerSecond float64 `json:"eventspersecond" yaml:"eventspersecond"`
}

// CPUOutput is the summary record of a cpu run.
type CPUOutput struct {
	TotalTime           float64 `json:"totaltime" yaml:"totaltime"`
	TotalNumberOfEvents float64 `json:"totalnumberofevents" yaml:"totalnumberofevents"`
	PrimeNumbersLimit   float64 `json:"Primenumberslimit" yaml:"Primenumberslimit"`
	NumberOfThreads     float64 `json:"Numberofthreads" yaml:"Numberofthreads"`
}

// MemoryOutput is the summary record of a memory run.
type MemoryOutput struct {
	TotalTime                float64 `json:"totaltime" yaml:"totaltime"`
	TotalNumberOfEvents      float64 `json:"totalnumberofevents" yaml:"totalnumberofevents"`
	BlockSize                string  `json:"blocksize" yaml:"blocksize"`
	TotalSize                string  `json:"totalsize" yaml:"totalsize"`
	Operation                string  `json:"operation" yaml:"operation"`
	Scope                    string  `json:"scope" yaml:"scope"`
	TotalOperationsPerSecond float64 `json:"Totaloperationspersecond" yaml:"Totaloperationspersecond"`
	TotalOperations          float64 `json:"Totaloperations" yaml:"Totaloperations"`
	NumberOfThreads          float64 `json:"Numberofthreads" yaml:"Numberofthreads"`
}

// CPUResults is the results record of a cpu run.
type CPUResults struct {
	CPUSpeed        CPUSpeed          `json:"CPUspeed" yaml:"CPUspeed"`
	Latency         LatencyAggregates `json:"Latency" yaml:"Latency"`
	ThreadsFairness ThreadsFairness   `json:"Threadsfairness" yaml:"Threadsfairness"`
}

// MemoryResults is the results record of a memory run.
type MemoryResults struct {
	TransferredMiB       float64           `json:"transferred_MiB" yaml:"transferred_MiB"`
	TransferredMiBPerSec float64           `json:"transferred_MiBpersec" yaml:"transferred_MiBpersec"`
	Latency              LatencyAggregates `json:"Latency" yaml:"Latency"`
	ThreadsFairness      ThreadsFairness   `json:"Threadsfairness" yaml:"Threadsfairness"`
}

// CPUWorkload is the success output of the cpu step.
type CPUWorkload struct {
	Output  CPUOutput  `json:"sysbench_output_params" yaml:"sysbench_output_params"`
	Results CPUResults `json:"sysbench_results" yaml:"sysbench_results"`
}

// MemoryWorkload is the success output of the memory step.
type MemoryWorkload struct {
	Output  MemoryOutput  `json:"sysbench_output_params" yaml:"sysbench_output_params"`
	Results MemoryResults `json:"sysbench_results" yaml:"sysbench_results"`
}

func required(name string, kind schema.Kind) schema.Field {
	return schema.Field{Name: name, Kind: kind, Required: true}
}

var aggregateFields = []schema.Field{
	required("avg", schema.Float),
	required("stddev", schema.Float),
}

var latencyField = schema.Field{
	Name: "Latency", Kind: schema.Object, Required: true,
	Fields: []schema.Field{
		required("avg", schema.Float),
		required("min", schema.Float),
		required("max", schema.Float),
		required("P95thpercentile", schema.Float),
		required("sum", schema.Float),
	},
}

var fairnessField = schema.Field{
	Name: "Threadsfairness", Kind: schema.Object, Required: true,
	Fields: []schema.Field{
		{Name: "events", Kind: schema.Object, Required: true, Fields: aggregateFields},
		{Name: "executiontime", Kind: schema.Object, Required: true, Fields: aggregateFields},
	},
}

var threadsField = schema.Field{Name: "Numberofthreads", Kind: schema.Float, Default: 1.0}

// Schemas for the records above.
var (
	CPUOutputSchema = schema.Schema{
		Name: "sysbench_output_params",
		Fields: []schema.Field{
			required("totaltime", schema.Float),
			required("totalnumberofevents", schema.Float),
			required("Primenumberslimit", schema.Float),
			threadsField,
		},
	}

	MemoryOutputSchema = schema.Schema{
		Name: "sysbench_output_params",
		Fields: []schema.Field{
			required("totaltime", schema.Float),
			required("totalnumberofevents", schema.Float),
			required("blocksize", schema.String),
			required("totalsize", schema.String),
			required("operation", schema.String),
			required("scope", schema.String),
			required("Totaloperationspersecond", schema.Float),
			required("Totaloperations", schema.Float),
			threadsField,
		},
	}

	CPUResultsSchema = schema.Schema{
		Name: "sysbench_results",
		Fields: []schema.Field{
			{
				Name: "CPUspeed", Kind: schema.Object, Required: true,
				Fields: []schema.Field{required("eventspersecond", schema.Float)},
			},
			latencyField,
			fairnessField,
		},
	}

	MemoryResultsSchema = schema.Schema{
		Name: "sysbench_results",
		Fields: []schema.Field{
			required("transferred_MiB", schema.Float),
			required("transferred_MiBpersec", schema.Float),
			latencyField,
			fairnessField,
		},
	}
)
