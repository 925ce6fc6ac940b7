package sol

// LamportsPerSol is the number of lamports in one SOL.
const LamportsPerSol = 1_000_000_000

// Decimals is the number of decimal places a SOL amount can carry.
const Decimals = 9
