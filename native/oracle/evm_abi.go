package oracle

// OptimisticOracleABI is the subset of the UMA Optimistic Oracle V3 interface
// used by EVMHost and the relay.
const OptimisticOracleABI = `[
  {"type":"function","name":"assertTruth","stateMutability":"nonpayable",
   "inputs":[
     {"name":"claim","type":"bytes"},
     {"name":"asserter","type":"address"},
     {"name":"callbackRecipient","type":"address"},
     {"name":"escalationManager","type":"address"},
     {"name":"liveness","type":"uint64"},
     {"name":"currency","type":"address"},
     {"name":"bond","type":"uint256"},
     {"name":"identifier","type":"bytes32"},
     {"name":"domainId","type":"bytes32"}],
   "outputs":[{"name":"assertionId","type":"bytes32"}]},
  {"type":"function","name":"getMinimumBond","stateMutability":"view",
   "inputs":[{"name":"currency","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"defaultIdentifier","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"","type":"bytes32"}]},
  {"type":"event","name":"AssertionMade","anonymous":false,
   "inputs":[
     {"name":"assertionId","type":"bytes32","indexed":true},
     {"name":"domainId","type":"bytes32","indexed":false},
     {"name":"claim","type":"bytes","indexed":false},
     {"name":"asserter","type":"address","indexed":true},
     {"name":"callbackRecipient","type":"address","indexed":false},
     {"name":"escalationManager","type":"address","indexed":false},
     {"name":"caller","type":"address","indexed":false},
     {"name":"expirationTime","type":"uint64","indexed":false},
     {"name":"currency","type":"address","indexed":false},
     {"name":"bond","type":"uint256","indexed":false},
     {"name":"identifier","type":"bytes32","indexed":true}]},
  {"type":"event","name":"AssertionDisputed","anonymous":false,
   "inputs":[
     {"name":"assertionId","type":"bytes32","indexed":true},
     {"name":"caller","type":"address","indexed":true},
     {"name":"disputer","type":"address","indexed":true}]},
  {"type":"event","name":"AssertionSettled","anonymous":false,
   "inputs":[
     {"name":"assertionId","type":"bytes32","indexed":true},
     {"name":"bondRecipient","type":"address","indexed":true},
     {"name":"disputed","type":"bool","indexed":false},
     {"name":"settlementResolution","type":"bool","indexed":false},
     {"name":"settleCaller","type":"address","indexed":false}]}
]`
