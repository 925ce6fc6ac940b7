package solana

type Environment string

const (
	EnvironmentDev   Environment = "https://api.devnet.solana.com"
	EnvironmentTest  Environment = "https://api.testnet.solana.com"
	EnvironmentProd  Environment = "https://api.mainnet-beta.solana.com"
	EnvironmentLocal Environment = "http://127.0.0.1:8899"
)

// Cluster is the network moniker used by explorers and wallets.
type Cluster string

const (
	ClusterDevnet      Cluster = "devnet"
	ClusterTestnet     Cluster = "testnet"
	ClusterMainnetBeta Cluster = "mainnet-beta"
	ClusterLocalnet    Cluster = "custom"
)

// Cluster returns the cluster moniker for the environment. Unknown endpoints
// are treated as custom clusters.
func (e Environment) Cluster() Cluster {
	switch e {
	case EnvironmentDev:
		return ClusterDevnet
	case EnvironmentTest:
		return ClusterTestnet
	case EnvironmentProd:
		return ClusterMainnetBeta
	default:
		return ClusterLocalnet
	}
}

// EnvironmentFromCluster maps a cluster moniker back to its public RPC endpoint.
func EnvironmentFromCluster(c Cluster) (Environment, bool) {
	switch c {
	case ClusterDevnet:
		return EnvironmentDev, true
	case ClusterTestnet:
		return EnvironmentTest, true
	case ClusterMainnetBeta:
		return EnvironmentProd, true
	case ClusterLocalnet:
		return EnvironmentLocal, true
	}
	return "", false
}
